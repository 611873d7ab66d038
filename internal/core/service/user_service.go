package service

import (
	"context"
	"time"

	"github.com/rl1809/voucher-rush/internal/port"
)

// UserService covers the sign-in calendar kept as a per-user monthly bitmap.
type UserService struct {
	signs port.SignRepository
}

func NewUserService(signs port.SignRepository) *UserService {
	return &UserService{signs: signs}
}

func (s *UserService) Sign(ctx context.Context, userID uint64, now time.Time) error {
	return s.signs.SetSignBit(ctx, userID, now)
}

// SignStreak counts consecutive signed days ending today.
func (s *UserService) SignStreak(ctx context.Context, userID uint64, now time.Time) (int, error) {
	bits, err := s.signs.MonthSignBits(ctx, userID, now)
	if err != nil {
		return 0, err
	}
	count := 0
	for bits&1 == 1 {
		count++
		bits >>= 1
	}
	return count, nil
}
