package services

import (
	"context"
	"testing"
	"time"

	"dulp-economy/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) seedActivationCode(t *testing.T, code string, maxUses int, expiresAt *time.Time) *models.ActivationCode {
	t.Helper()
	ac := &models.ActivationCode{
		ID:        uuid.NewString(),
		Code:      code,
		MaxUses:   maxUses,
		IsActive:  true,
		ExpiresAt: expiresAt,
	}
	require.NoError(t, e.DB.Create(ac).Error)
	return ac
}

func TestActivate(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	ac := env.seedActivationCode(t, "WELCOME", 5, nil)
	ctx := context.Background()

	require.NoError(t, env.Engine.Activation.Activate(ctx, "u1", " WELCOME "))

	var prof models.Profile
	require.NoError(t, env.DB.Where("user_id = ?", "u1").First(&prof).Error)
	require.True(t, prof.IsActivated)

	var stored models.ActivationCode
	require.NoError(t, env.DB.Where("id = ?", ac.ID).First(&stored).Error)
	require.Equal(t, 1, stored.CurrentUses)

	var ua models.UserActivation
	require.NoError(t, env.DB.Where("user_id = ?", "u1").First(&ua).Error)
	require.Equal(t, ac.ID, ua.ActivationCodeID)

	err := env.Engine.Activation.Activate(ctx, "u1", "WELCOME")
	ee := requireKind(t, err, KindConflict)
	require.Equal(t, "Account already activated", ee.Message)
}

func TestActivate_Errors(t *testing.T) {
	env := newTestEnv(t)
	env.seedProfile(t, "u1")
	env.seedProfile(t, "early")
	past := testStart.Add(-time.Hour)
	env.seedActivationCode(t, "OLD", 5, &past)
	env.seedActivationCode(t, "ONCE", 1, nil)
	env.seedActivationCode(t, "OFF", 5, nil)
	require.NoError(t, env.DB.Model(&models.ActivationCode{}).Where("code = ?", "OFF").Update("is_active", false).Error)
	require.NoError(t, env.Engine.Activation.Activate(context.Background(), "early", "ONCE"))

	tests := []struct {
		name    string
		code    string
		kind    ErrorKind
		message string
	}{
		{name: "empty", code: "", kind: KindValidation, message: "Code required"},
		{name: "unknown", code: "NOPE", kind: KindNotFound, message: "Invalid activation code"},
		{name: "disabled", code: "OFF", kind: KindNotFound, message: "Invalid activation code"},
		{name: "expired", code: "OLD", kind: KindValidation, message: "Code expired"},
		{name: "used up", code: "ONCE", kind: KindValidation, message: "Code usage limit reached"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := env.Engine.Activation.Activate(context.Background(), "u1", tt.code)
			ee := requireKind(t, err, tt.kind)
			require.Equal(t, tt.message, ee.Message)
		})
	}

	var prof models.Profile
	require.NoError(t, env.DB.Where("user_id = ?", "u1").First(&prof).Error)
	require.False(t, prof.IsActivated)
}
