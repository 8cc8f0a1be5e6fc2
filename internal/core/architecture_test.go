package core

import (
	"testing"

	"colonyledger/testutil"
)

// TestCoreDoesNotImportStorage keeps the engine and service independent of
// concrete repositories.
func TestCoreDoesNotImportStorage(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.StorageImportForbidden, "core persists only through domain.Repository")
}
