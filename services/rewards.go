package services

import (
	"time"

	"dulp-economy/models"

	"gorm.io/gorm"
)

// rewardGrant is one earning event: balance, XP and, for task claims, the
// referrer's cut.
type rewardGrant struct {
	Profile        *models.Profile
	Amount         int64
	XP             int64
	Description    string
	ReferenceID    string
	ProfileUpdates map[string]interface{}

	// PayReferral credits the direct referrer a commission. Only task claims
	// set it; game rewards never pay one.
	PayReferral bool
}

type grantResult struct {
	Level      LevelResult
	NewBalance int64
	Commission int64
}

// rewarder applies earning events. Every reward path (tasks, games) goes
// through grant so the emission counter sees every reward.
type rewarder struct {
	emission  *EmissionService
	progress  *ProgressionService
	referrals *ReferralService
}

// grant runs inside the caller's transaction. A zero Amount skips the
// emission counter and ledger but still awards XP and writes ProfileUpdates.
func (r *rewarder) grant(tx *gorm.DB, g rewardGrant, now time.Time) (*grantResult, error) {
	out := &grantResult{NewBalance: g.Profile.Balance}

	if g.Amount > 0 {
		var referrer *models.Profile
		if g.PayReferral {
			var err error
			if referrer, err = referrerOf(tx, g.Profile); err != nil {
				return nil, err
			}
			if referrer != nil {
				out.Commission = r.referrals.Commission(g.Amount)
			}
		}

		if err := r.emission.reserve(tx, now, g.Amount); err != nil {
			return nil, err
		}
		if _, err := postLedger(tx, g.Profile, LedgerEntry{
			Amount:         g.Amount,
			Type:           models.TxEarn,
			Description:    g.Description,
			ReferenceID:    g.ReferenceID,
			ProfileUpdates: g.ProfileUpdates,
		}, now); err != nil {
			return nil, err
		}
		if err := r.referrals.payCommission(tx, referrer, g.Profile, out.Commission, g.ReferenceID, now); err != nil {
			return nil, err
		}
		out.NewBalance = g.Profile.Balance
	} else if len(g.ProfileUpdates) > 0 {
		if err := touchProfile(tx, g.Profile, g.ProfileUpdates, now); err != nil {
			return nil, err
		}
	}

	level, err := r.progress.award(tx, g.Profile.UserID, g.XP, now)
	if err != nil {
		return nil, err
	}
	out.Level = level
	return out, nil
}
