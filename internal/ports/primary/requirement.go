package primary

import "context"

// RequirementService defines the primary port for the requirement catalog.
type RequirementService interface {
	// CreateRequirement adds a requirement and recomputes every school.
	CreateRequirement(ctx context.Context, req CreateRequirementRequest) (*Requirement, error)

	// GetRequirement retrieves a requirement by ID.
	GetRequirement(ctx context.Context, requirementID string) (*Requirement, error)

	// UpdateRequirement changes title, order, resources or (while unreferenced) stage.
	UpdateRequirement(ctx context.Context, req UpdateRequirementRequest) (*Requirement, error)

	// DeleteRequirement removes an unreferenced requirement and recomputes every school.
	DeleteRequirement(ctx context.Context, requirementID string) error

	// ListRequirements lists the catalog ordered by stage and order index.
	// An empty stage lists every stage.
	ListRequirements(ctx context.Context, stage string) ([]*Requirement, error)
}

// CreateRequirementRequest contains parameters for creating a requirement.
type CreateRequirementRequest struct {
	Stage        string
	Title        string
	OrderIndex   *int // nil appends after the last requirement of the stage
	ResourceRefs []string
}

// UpdateRequirementRequest contains parameters for updating a requirement.
// Nil fields are left unchanged.
type UpdateRequirementRequest struct {
	RequirementID string
	Stage         *string
	Title         *string
	OrderIndex    *int
	ResourceRefs  []string
	SetResources  bool // replace resource refs with ResourceRefs (possibly empty)
}

// Requirement represents a catalog requirement at the port boundary.
type Requirement struct {
	ID           string
	Stage        string
	OrderIndex   int
	Title        string
	ResourceRefs []string
	CreatedAt    string
	UpdatedAt    string
}
