package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

func (s *Server) registerSettingsRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getEncryption",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/encryption",
		Summary:     "Get encryption setting",
		Description: "Reports whether backups are encrypted. The password is never returned.",
		Tags:        []string{"Settings"},
		Security:    bearer,
	}, s.handleGetEncryption)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateEncryption",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings/encryption",
		Summary:     "Update encryption setting",
		Description: "Enables or disables encryption. Omitting the password keeps the stored one.",
		Tags:        []string{"Settings"},
		Security:    bearer,
	}, s.handleUpdateEncryption)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPreferences",
		Method:      http.MethodGet,
		Path:        "/api/v1/settings/preferences",
		Summary:     "Get backup preferences",
		Tags:        []string{"Settings"},
		Security:    bearer,
	}, s.handleGetPreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePreferences",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings/preferences",
		Summary:     "Update backup preferences",
		Description: "Selects the categories future backups include. At least one must be selected.",
		Tags:        []string{"Settings"},
		Security:    bearer,
	}, s.handleUpdatePreferences)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateAutoBackup",
		Method:      http.MethodPut,
		Path:        "/api/v1/settings/auto-backup",
		Summary:     "Toggle automatic backups",
		Tags:        []string{"Settings"},
		Security:    bearer,
	}, s.handleUpdateAutoBackup)
}

// EncryptionResponse describes the encryption setting without its secret.
type EncryptionResponse struct {
	Enabled     bool `json:"enabled" doc:"Whether new backups are encrypted"`
	PasswordSet bool `json:"password_set" doc:"Whether a password is stored"`
}

// EncryptionOutput wraps the encryption setting for Huma.
type EncryptionOutput struct {
	Body EncryptionResponse
}

// UpdateEncryptionRequest changes the encryption setting.
type UpdateEncryptionRequest struct {
	Enabled  bool   `json:"enabled" doc:"Encrypt new backups"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8,max=1024" doc:"New password; omit to keep the stored one"`
}

// UpdateEncryptionInput contains the request body.
type UpdateEncryptionInput struct {
	Body UpdateEncryptionRequest
}

func (s *Server) encryptionOutput() *EncryptionOutput {
	enc := s.settings.Encryption()
	return &EncryptionOutput{
		Body: EncryptionResponse{
			Enabled:     enc.Enabled,
			PasswordSet: enc.Password != "",
		},
	}
}

func (s *Server) handleGetEncryption(_ context.Context, _ *struct{}) (*EncryptionOutput, error) {
	return s.encryptionOutput(), nil
}

func (s *Server) handleUpdateEncryption(ctx context.Context, input *UpdateEncryptionInput) (*EncryptionOutput, error) {
	if err := s.validate.Validate(input.Body); err != nil {
		return nil, s.engineError("update encryption", err)
	}

	cfg := backup.EncryptionConfig{
		Enabled:  input.Body.Enabled,
		Password: input.Body.Password,
	}
	if cfg.Password == "" {
		cfg.Password = s.settings.Encryption().Password
	}

	if err := s.settings.SetEncryption(ctx, cfg); err != nil {
		return nil, s.engineError("update encryption", err)
	}
	s.logger.Info("encryption setting updated", "enabled", cfg.Enabled)
	return s.encryptionOutput(), nil
}

// PreferencesOutput wraps the backup preferences for Huma.
type PreferencesOutput struct {
	Body backup.BackupPreferences
}

// UpdatePreferencesInput contains the request body.
type UpdatePreferencesInput struct {
	Body backup.BackupPreferences
}

func (s *Server) handleGetPreferences(_ context.Context, _ *struct{}) (*PreferencesOutput, error) {
	return &PreferencesOutput{Body: s.settings.Preferences()}, nil
}

func (s *Server) handleUpdatePreferences(ctx context.Context, input *UpdatePreferencesInput) (*PreferencesOutput, error) {
	if !input.Body.AnyEnabled() {
		return nil, s.engineError("update preferences", backup.ErrNoCategories)
	}
	if err := s.settings.SetPreferences(ctx, input.Body); err != nil {
		return nil, s.engineError("update preferences", err)
	}
	return &PreferencesOutput{Body: s.settings.Preferences()}, nil
}

// AutoBackupRequest toggles automatic backups.
type AutoBackupRequest struct {
	Enabled bool `json:"enabled" doc:"Run backups automatically when due"`
}

// AutoBackupInput contains the request body.
type AutoBackupInput struct {
	Body AutoBackupRequest
}

// AutoBackupOutput echoes the stored flag.
type AutoBackupOutput struct {
	Body AutoBackupRequest
}

func (s *Server) handleUpdateAutoBackup(ctx context.Context, input *AutoBackupInput) (*AutoBackupOutput, error) {
	if err := s.settings.SetAutoBackup(ctx, input.Body.Enabled); err != nil {
		return nil, s.engineError("update auto-backup", err)
	}
	return &AutoBackupOutput{Body: AutoBackupRequest{Enabled: s.settings.AutoBackup()}}, nil
}
