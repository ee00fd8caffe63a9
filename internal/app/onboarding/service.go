package onboarding

import (
	"context"
	"fmt"

	"cadaver/internal/domain"
	"cadaver/internal/ports"
)

// Result captures non-fatal onboarding outcomes.
type Result struct {
	// ProfileUpdateErr is set when the profile update failed but onboarding continued.
	ProfileUpdateErr error
	// DisplayName is the canonical name the account was mapped to.
	DisplayName string
}

// Service handles post-auth onboarding for new accounts: free-form device
// usernames are normalized against the roster so contributions count toward
// roster completion from the first verse.
type Service struct {
	accounts ports.AccountPort
	roster   domain.Roster
}

// NewService constructs an onboarding service. accounts must be non-nil.
func NewService(accounts ports.AccountPort, roster domain.Roster) *Service {
	return &Service{
		accounts: accounts,
		roster:   roster,
	}
}

// OnboardNewUser maps the raw username to its canonical roster identity and
// applies it as the account display name. The profile update is
// best-effort; the resolved name is always returned.
func (s *Service) OnboardNewUser(ctx context.Context, userID, rawUsername string) (Result, error) {
	if s.accounts == nil {
		return Result{}, fmt.Errorf("onboarding service not configured")
	}

	displayName := s.roster.Normalize(rawUsername)
	result := Result{DisplayName: displayName}
	if displayName == "" {
		return result, nil
	}

	if err := s.accounts.UpdateProfile(ctx, userID, "", displayName); err != nil {
		result.ProfileUpdateErr = err
	}

	return result, nil
}
