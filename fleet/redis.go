package fleet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. Vehicles live under an ID key with a
// license plate index claimed via SETNX, and each company keeps a set of its
// vehicle IDs for listing.
type RedisStore struct {
	redis  *redis.Client
	prefix string
}

// NewRedisStore describes the newredisstore operation and its observable behavior.
//
// NewRedisStore may return an error when input validation, dependency calls, or security checks fail.
// NewRedisStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewRedisStore(client *redis.Client, prefix string) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if prefix == "" {
		prefix = "ba"
	}
	return &RedisStore{redis: client, prefix: prefix}, nil
}

func (s *RedisStore) companyKey(companyID string) string {
	return s.prefix + ":fleet:company:" + companyID
}

func (s *RedisStore) vehicleKey(vehicleID string) string {
	return s.prefix + ":fleet:vehicle:" + vehicleID
}

func (s *RedisStore) plateKey(plate string) string {
	return s.prefix + ":fleet:plate:" + plate
}

func (s *RedisStore) companyVehiclesKey(companyID string) string {
	return s.prefix + ":fleet:company:" + companyID + ":vehicles"
}

// InsertCompany describes the insertcompany operation and its observable behavior.
//
// InsertCompany may return an error when input validation, dependency calls, or security checks fail.
// InsertCompany does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) InsertCompany(ctx context.Context, in CompanyInput) (*Company, error) {
	company := &Company{
		CompanyID: uuid.NewString(),
		Name:      in.Name,
	}

	data, err := json.Marshal(company)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := s.redis.Set(ctx, s.companyKey(company.CompanyID), data, 0).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return company, nil
}

// FindCompany describes the findcompany operation and its observable behavior.
//
// FindCompany may return an error when input validation, dependency calls, or security checks fail.
// FindCompany does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) FindCompany(ctx context.Context, companyID string) (*Company, error) {
	data, err := s.redis.Get(ctx, s.companyKey(companyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var company Company
	if err := json.Unmarshal(data, &company); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &company, nil
}

// InsertVehicle describes the insertvehicle operation and its observable behavior.
//
// InsertVehicle may return an error when input validation, dependency calls, or security checks fail.
// InsertVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) InsertVehicle(ctx context.Context, in VehicleInput) (*Vehicle, error) {
	vehicle := &Vehicle{
		VehicleID:    uuid.NewString(),
		CompanyID:    in.CompanyID,
		LicensePlate: in.LicensePlate,
		VehicleType:  in.VehicleType,
		SeatCount:    in.SeatCount,
	}

	claimed, err := s.redis.SetNX(ctx, s.plateKey(in.LicensePlate), vehicle.VehicleID, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if !claimed {
		return nil, ErrPlateTaken
	}

	data, err := json.Marshal(vehicle)
	if err != nil {
		s.redis.Del(ctx, s.plateKey(in.LicensePlate))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.vehicleKey(vehicle.VehicleID), data, 0)
		pipe.SAdd(ctx, s.companyVehiclesKey(in.CompanyID), vehicle.VehicleID)
		return nil
	})
	if err != nil {
		s.redis.Del(ctx, s.plateKey(in.LicensePlate))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	return vehicle, nil
}

// FindVehicle describes the findvehicle operation and its observable behavior.
//
// FindVehicle may return an error when input validation, dependency calls, or security checks fail.
// FindVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) FindVehicle(ctx context.Context, vehicleID string) (*Vehicle, error) {
	data, err := s.redis.Get(ctx, s.vehicleKey(vehicleID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrVehicleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var vehicle Vehicle
	if err := json.Unmarshal(data, &vehicle); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return &vehicle, nil
}

// ListVehicles describes the listvehicles operation and its observable behavior.
//
// ListVehicles may return an error when input validation, dependency calls, or security checks fail.
// ListVehicles does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) ListVehicles(ctx context.Context, companyID string) ([]*Vehicle, error) {
	ids, err := s.redis.SMembers(ctx, s.companyVehiclesKey(companyID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	vehicles := make([]*Vehicle, 0, len(ids))
	for _, id := range ids {
		vehicle, err := s.FindVehicle(ctx, id)
		if errors.Is(err, ErrVehicleNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, vehicle)
	}
	return vehicles, nil
}

// UpdateVehicle describes the updatevehicle operation and its observable behavior.
//
// UpdateVehicle may return an error when input validation, dependency calls, or security checks fail.
// UpdateVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) UpdateVehicle(ctx context.Context, v *Vehicle) error {
	current, err := s.FindVehicle(ctx, v.VehicleID)
	if err != nil {
		return err
	}

	if current.LicensePlate != v.LicensePlate {
		claimed, err := s.redis.SetNX(ctx, s.plateKey(v.LicensePlate), v.VehicleID, 0).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if !claimed {
			return ErrPlateTaken
		}
		s.redis.Del(ctx, s.plateKey(current.LicensePlate))
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.vehicleKey(v.VehicleID), data, 0)
		if current.CompanyID != v.CompanyID {
			pipe.SRem(ctx, s.companyVehiclesKey(current.CompanyID), v.VehicleID)
			pipe.SAdd(ctx, s.companyVehiclesKey(v.CompanyID), v.VehicleID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// DeleteVehicle describes the deletevehicle operation and its observable behavior.
//
// DeleteVehicle may return an error when input validation, dependency calls, or security checks fail.
// DeleteVehicle does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *RedisStore) DeleteVehicle(ctx context.Context, vehicleID string) error {
	vehicle, err := s.FindVehicle(ctx, vehicleID)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.vehicleKey(vehicleID))
		pipe.Del(ctx, s.plateKey(vehicle.LicensePlate))
		pipe.SRem(ctx, s.companyVehiclesKey(vehicle.CompanyID), vehicleID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
