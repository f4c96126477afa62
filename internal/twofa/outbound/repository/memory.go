package repository

import (
	"context"
	"time"

	"github.com/shandysiswandi/otpgate/internal/pkg/goerror"
	"github.com/shandysiswandi/otpgate/internal/twofa/entity"
)

// Memory keeps users in process memory, in insertion order.
//
// Memory is not safe for concurrent use; it is meant to sit behind Locked.
// Returned users are copies, so callers cannot mutate stored state.
type Memory struct {
	users   []*entity.User
	byID    map[string]int
	byEmail map[string]int
}

func NewMemory() *Memory {
	return &Memory{byID: map[string]int{}, byEmail: map[string]int{}}
}

func (m *Memory) FindByCustomField(ctx context.Context, field entity.Field, value string) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch field {
	case entity.FieldID:
		if i, ok := m.byID[value]; ok {
			return cloneUser(m.users[i]), nil
		}
	case entity.FieldEmail:
		if i, ok := m.byEmail[entity.NormalizeEmail(value)]; ok {
			return cloneUser(m.users[i]), nil
		}
	case entity.FieldName:
		for _, u := range m.users {
			if u.Name == value {
				return cloneUser(u), nil
			}
		}
	default:
		return nil, ErrUnsupportedField
	}

	return nil, goerror.ErrNotFound
}

func (m *Memory) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.FindByCustomField(ctx, entity.FieldEmail, email)
}

func (m *Memory) RegisterByEmail(ctx context.Context, reg entity.Registration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	email := entity.NormalizeEmail(reg.Email)
	if _, ok := m.byEmail[email]; ok {
		return goerror.ErrConflict
	}
	if _, ok := m.byID[reg.ID]; ok {
		return goerror.ErrConflict
	}

	reg.Email = email
	m.users = append(m.users, reg.User())
	m.byID[reg.ID] = len(m.users) - 1
	m.byEmail[email] = len(m.users) - 1

	return nil
}

func (m *Memory) UpdateOTP(ctx context.Context, id string, otp entity.OTP, updatedAt time.Time) (*entity.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := otp.Validate(); err != nil {
		return nil, err
	}

	i, ok := m.byID[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}

	m.users[i] = cloneUser(m.users[i].Apply(otp, updatedAt))

	return cloneUser(m.users[i]), nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }

func (m *Memory) Close(context.Context) error { return nil }
