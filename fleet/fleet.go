// Package fleet manages the bus companies and vehicles that tickets are sold
// against. It follows the same store contract style as the authentication
// engine: a Service orchestrates validation and a Store persists records.
package fleet

import (
	"context"
	"errors"
	"fmt"
)

// VehicleType enumerates the supported coach layouts.
type VehicleType string

const (
	// VehicleSleeper is an exported constant or variable used by the fleet service.
	VehicleSleeper VehicleType = "sleeper"
	// VehicleSeated is an exported constant or variable used by the fleet service.
	VehicleSeated VehicleType = "seated"
)

// Sentinel errors returned by the fleet service and its stores.
var (
	// ErrCompanyNotFound is an exported constant or variable used by the fleet service.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrVehicleNotFound is an exported constant or variable used by the fleet service.
	ErrVehicleNotFound = errors.New("vehicle not found")
	// ErrVehicleInvalid is an exported constant or variable used by the fleet service.
	ErrVehicleInvalid = errors.New("invalid vehicle")
	// ErrCompanyInvalid is an exported constant or variable used by the fleet service.
	ErrCompanyInvalid = errors.New("invalid company")
	// ErrPlateTaken is an exported constant or variable used by the fleet service.
	ErrPlateTaken = errors.New("license plate already registered")
	// ErrStoreUnavailable is an exported constant or variable used by the fleet service.
	ErrStoreUnavailable = errors.New("fleet store unavailable")
)

// Company defines a public type used by busauth APIs.
//
// Company instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Company struct {
	CompanyID string
	Name      string
}

// Vehicle defines a public type used by busauth APIs.
//
// Vehicle instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Vehicle struct {
	VehicleID    string
	CompanyID    string
	LicensePlate string
	VehicleType  VehicleType
	SeatCount    int
}

// CompanyInput defines a public type used by busauth APIs.
//
// CompanyInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CompanyInput struct {
	Name string
}

// VehicleInput defines a public type used by busauth APIs.
//
// VehicleInput instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type VehicleInput struct {
	CompanyID    string
	LicensePlate string
	VehicleType  VehicleType
	SeatCount    int
}

// Store persists companies and vehicles. Implementations must be safe for
// concurrent use. InsertVehicle enforces license plate uniqueness and fails
// with ErrPlateTaken; lookups miss with the NotFound sentinels.
type Store interface {
	InsertCompany(ctx context.Context, in CompanyInput) (*Company, error)
	FindCompany(ctx context.Context, companyID string) (*Company, error)
	InsertVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error)
	FindVehicle(ctx context.Context, vehicleID string) (*Vehicle, error)
	ListVehicles(ctx context.Context, companyID string) ([]*Vehicle, error)
	UpdateVehicle(ctx context.Context, v *Vehicle) error
	DeleteVehicle(ctx context.Context, vehicleID string) error
}

// Service validates fleet operations before handing them to the Store.
type Service struct {
	store Store
}

// NewService describes the newservice operation and its observable behavior.
//
// NewService may return an error when input validation, dependency calls, or security checks fail.
// NewService does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewService(store Store) (*Service, error) {
	if store == nil {
		return nil, errors.New("fleet store required")
	}
	return &Service{store: store}, nil
}

// CreateCompany describes the createcompany operation and its observable behavior.
//
// CreateCompany may return an error when input validation, dependency calls, or security checks fail.
// CreateCompany does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) CreateCompany(ctx context.Context, in CompanyInput) (*Company, error) {
	if in.Name == "" {
		return nil, ErrCompanyInvalid
	}
	return s.store.InsertCompany(ctx, in)
}

// Company describes the company operation and its observable behavior.
//
// Company may return an error when input validation, dependency calls, or security checks fail.
// Company does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Company(ctx context.Context, companyID string) (*Company, error) {
	return s.store.FindCompany(ctx, companyID)
}

// CreateVehicle describes the createvehicle operation and its observable behavior.
//
// CreateVehicle may return an error when input validation, dependency calls, or security checks fail.
// CreateVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
//
// The owning company must exist before a vehicle can be registered against
// it.
func (s *Service) CreateVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error) {
	if err := validateVehicleInput(in); err != nil {
		return nil, err
	}

	if _, err := s.store.FindCompany(ctx, in.CompanyID); err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return s.store.InsertVehicle(ctx, in)
}

// Vehicle describes the vehicle operation and its observable behavior.
//
// Vehicle may return an error when input validation, dependency calls, or security checks fail.
// Vehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Vehicle(ctx context.Context, vehicleID string) (*Vehicle, error) {
	return s.store.FindVehicle(ctx, vehicleID)
}

// Vehicles describes the vehicles operation and its observable behavior.
//
// Vehicles may return an error when input validation, dependency calls, or security checks fail.
// Vehicles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) Vehicles(ctx context.Context, companyID string) ([]*Vehicle, error) {
	if _, err := s.store.FindCompany(ctx, companyID); err != nil {
		return nil, err
	}
	return s.store.ListVehicles(ctx, companyID)
}

// UpdateVehicle describes the updatevehicle operation and its observable behavior.
//
// UpdateVehicle may return an error when input validation, dependency calls, or security checks fail.
// UpdateVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) UpdateVehicle(ctx context.Context, v *Vehicle) error {
	if v == nil || v.VehicleID == "" {
		return ErrVehicleInvalid
	}
	if err := validateVehicleInput(VehicleInput{
		CompanyID:    v.CompanyID,
		LicensePlate: v.LicensePlate,
		VehicleType:  v.VehicleType,
		SeatCount:    v.SeatCount,
	}); err != nil {
		return err
	}
	return s.store.UpdateVehicle(ctx, v)
}

// DeleteVehicle describes the deletevehicle operation and its observable behavior.
//
// DeleteVehicle may return an error when input validation, dependency calls, or security checks fail.
// DeleteVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Service) DeleteVehicle(ctx context.Context, vehicleID string) error {
	return s.store.DeleteVehicle(ctx, vehicleID)
}

func validateVehicleInput(in VehicleInput) error {
	if in.CompanyID == "" || in.LicensePlate == "" {
		return ErrVehicleInvalid
	}
	switch in.VehicleType {
	case VehicleSleeper, VehicleSeated:
	default:
		return ErrVehicleInvalid
	}
	if in.SeatCount <= 0 {
		return ErrVehicleInvalid
	}
	return nil
}
