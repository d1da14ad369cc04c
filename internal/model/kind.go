package model

import "github.com/google/uuid"

// Kind identifies a category of business record with its own status lifecycle.
type Kind string

const (
	KindPaymentRequest Kind = "payment_request"
	KindDesignRequest  Kind = "design_request"
	KindDrawing        Kind = "drawing"
	KindAllocation     Kind = "allocation"
	KindTender         Kind = "tender"
	KindWorkPackage    Kind = "work_package"
	KindContract       Kind = "contract"
	KindEmployee       Kind = "employee"
)

// Module identifies a department-level permission scope.
type Module string

const (
	ModuleFinance      Module = "finance"
	ModuleEngineering  Module = "engineering"
	ModuleHR           Module = "hr"
	ModuleLegal        Module = "legal"
	ModuleConstruction Module = "construction"
	ModuleSettings     Module = "settings"
)

// kindModules maps each entity kind to the department module that owns it.
var kindModules = map[Kind]Module{
	KindPaymentRequest: ModuleFinance,
	KindDesignRequest:  ModuleEngineering,
	KindDrawing:        ModuleEngineering,
	KindAllocation:     ModuleHR,
	KindEmployee:       ModuleHR,
	KindTender:         ModuleLegal,
	KindContract:       ModuleLegal,
	KindWorkPackage:    ModuleConstruction,
}

// ModuleFor returns the owning module for a kind, or false if the kind is unknown.
func ModuleFor(kind Kind) (Module, bool) {
	m, ok := kindModules[kind]
	return m, ok
}

// Modules returns all department modules that own at least one kind, plus settings.
func Modules() []Module {
	return []Module{
		ModuleFinance,
		ModuleEngineering,
		ModuleHR,
		ModuleLegal,
		ModuleConstruction,
		ModuleSettings,
	}
}

// Kinds returns every registered entity kind.
func Kinds() []Kind {
	return []Kind{
		KindPaymentRequest,
		KindDesignRequest,
		KindDrawing,
		KindAllocation,
		KindTender,
		KindWorkPackage,
		KindContract,
		KindEmployee,
	}
}

// Entity is implemented by every business record governed by a status lattice.
// Status mutation goes through ApplyStatus so the store can keep a single
// write path per field.
type Entity interface {
	EntityID() uuid.UUID
	EntityKind() Kind
	CurrentStatus() string
	ApplyStatus(status string)
	DisplayName() string
	RefCode() string
}
