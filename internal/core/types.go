package core

import "colonyledger/pkg/domain"

type (
	EntityType       = domain.EntityType
	Base             = domain.Base
	Project          = domain.Project
	Species          = domain.Species
	Individual       = domain.Individual
	Snapshot         = domain.Snapshot
	Violation        = domain.Violation
	ViolationKind    = domain.ViolationKind
	Repository       = domain.Repository
	IDGenerator      = domain.IDGenerator
	EngineError      = domain.EngineError
	PersistenceError = domain.PersistenceError
)

const (
	EntityProject    = domain.EntityProject
	EntitySpecies    = domain.EntitySpecies
	EntityIndividual = domain.EntityIndividual
)
