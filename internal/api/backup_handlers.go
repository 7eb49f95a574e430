package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/lockboxapp/lockbox-server/internal/backup"
)

func (s *Server) registerBackupRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBackups",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups",
		Summary:     "List backups",
		Description: "Lists the archives in the remote backup directory, newest first",
		Tags:        []string{"Backups"},
		Security:    bearer,
	}, s.handleListBackups)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBackup",
		Method:        http.MethodPost,
		Path:          "/api/v1/backups",
		Summary:       "Create backup",
		Description:   "Builds a snapshot of the record store and uploads it. Preferences default to the saved ones.",
		Tags:          []string{"Backups"},
		Security:      bearer,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBackup)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteBackup",
		Method:        http.MethodDelete,
		Path:          "/api/v1/backups/{name}",
		Summary:       "Delete backup",
		Description:   "Removes an archive from the remote backup directory",
		Tags:          []string{"Backups"},
		Security:      bearer,
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "restoreBackup",
		Method:      http.MethodPost,
		Path:        "/api/v1/backups/{name}/restore",
		Summary:     "Restore backup",
		Description: "Downloads an archive and restores its records. Encrypted archives need a password when none is configured.",
		Tags:        []string{"Backups"},
		Security:    bearer,
	}, s.handleRestoreBackup)

	huma.Register(s.api, huma.Operation{
		OperationID: "backupDue",
		Method:      http.MethodGet,
		Path:        "/api/v1/backups/due",
		Summary:     "Auto-backup status",
		Description: "Reports whether an automatic backup is due now",
		Tags:        []string{"Backups"},
		Security:    bearer,
	}, s.handleBackupDue)
}

// BackupResponse is one archive in the listing.
type BackupResponse struct {
	Name       string    `json:"name" doc:"Remote file name"`
	Size       int64     `json:"size" doc:"Size in bytes"`
	ModifiedAt time.Time `json:"modified_at" doc:"Remote modification time"`
	Encrypted  bool      `json:"encrypted" doc:"Whether the name marks an encrypted archive"`
}

// ListBackupsOutput wraps the listing for Huma.
type ListBackupsOutput struct {
	Body struct {
		Backups []BackupResponse `json:"backups"`
	}
}

func (s *Server) handleListBackups(ctx context.Context, _ *struct{}) (*ListBackupsOutput, error) {
	files, err := s.backups.List(ctx)
	if err != nil {
		return nil, s.engineError("list backups", err)
	}

	out := &ListBackupsOutput{}
	out.Body.Backups = make([]BackupResponse, 0, len(files))
	for _, f := range files {
		out.Body.Backups = append(out.Body.Backups, BackupResponse{
			Name:       f.Name,
			Size:       f.Size,
			ModifiedAt: f.ModTime,
			Encrypted:  f.IsEncrypted(),
		})
	}
	return out, nil
}

// CreateBackupRequest optionally overrides the saved preferences.
type CreateBackupRequest struct {
	Preferences *backup.BackupPreferences `json:"preferences,omitempty" doc:"Categories to include for this run only"`
}

// CreateBackupInput contains the optional request body.
type CreateBackupInput struct {
	Body *CreateBackupRequest `required:"false"`
}

// BackupReportOutput wraps a backup report for Huma.
type BackupReportOutput struct {
	Body *backup.BackupReport
}

func (s *Server) handleCreateBackup(ctx context.Context, input *CreateBackupInput) (*BackupReportOutput, error) {
	prefs := s.settings.Preferences()
	if input.Body != nil && input.Body.Preferences != nil {
		prefs = *input.Body.Preferences
	}

	report, err := s.backups.Create(ctx, prefs)
	if err != nil {
		de := domainError(err)
		if de.HTTPStatus() >= http.StatusInternalServerError {
			s.logger.Error("request failed", "op", "create backup", "code", de.Code, "error", err)
		}
		if report != nil {
			// Upload failures still carry what was serialized.
			details := map[string]any{"report": report}
			if extra, ok := de.Details.(map[string]string); ok {
				for k, v := range extra {
					details[k] = v
				}
			}
			de = de.WithDetails(details)
		}
		return nil, apiError(de)
	}
	return &BackupReportOutput{Body: report}, nil
}

// BackupNameInput identifies an archive by its remote name.
type BackupNameInput struct {
	Name string `path:"name" doc:"Remote file name of the archive"`
}

func (s *Server) handleDeleteBackup(ctx context.Context, input *BackupNameInput) (*struct{}, error) {
	if err := s.backups.Delete(ctx, input.Name); err != nil {
		return nil, s.engineError("delete backup", err)
	}
	return nil, nil
}

// RestoreRequest carries the archive password.
type RestoreRequest struct {
	Password string `json:"password,omitempty" validate:"max=1024" doc:"Archive password; defaults to the configured encryption password"`
}

// RestoreBackupInput contains the archive name and optional password.
type RestoreBackupInput struct {
	Name string          `path:"name" doc:"Remote file name of the archive"`
	Body *RestoreRequest `required:"false"`
}

// RestoreReportOutput wraps a restore report for Huma.
type RestoreReportOutput struct {
	Body *backup.RestoreReport
}

func (s *Server) handleRestoreBackup(ctx context.Context, input *RestoreBackupInput) (*RestoreReportOutput, error) {
	file, err := s.backups.Stat(ctx, input.Name)
	if err != nil {
		return nil, s.engineError("restore backup", err)
	}

	var opts backup.RestoreOptions
	if input.Body != nil {
		if err := s.validate.Validate(input.Body); err != nil {
			return nil, s.engineError("restore backup", err)
		}
		opts.Password = input.Body.Password
	}

	report, err := s.backups.Restore(ctx, file, opts)
	if err != nil {
		return nil, s.engineError("restore backup", err)
	}
	return &RestoreReportOutput{Body: report}, nil
}

// DueResponse describes the auto-backup state.
type DueResponse struct {
	Due          bool       `json:"due" doc:"Whether a backup is due now"`
	AutoBackup   bool       `json:"auto_backup" doc:"Whether automatic backups are enabled"`
	LastBackupAt *time.Time `json:"last_backup_at,omitempty" doc:"Time of the last successful upload"`
	NextCheckAt  *time.Time `json:"next_check_at,omitempty" doc:"When the scheduler checks next"`
}

// DueOutput wraps the due state for Huma.
type DueOutput struct {
	Body DueResponse
}

func (s *Server) handleBackupDue(_ context.Context, _ *struct{}) (*DueOutput, error) {
	last := s.settings.LastBackupAt()
	out := &DueOutput{
		Body: DueResponse{
			Due:        backup.IsDue(last, s.now()),
			AutoBackup: s.settings.AutoBackup(),
		},
	}
	if !last.IsZero() {
		out.Body.LastBackupAt = &last
	}
	if s.schedule != nil {
		if next := s.schedule.Next(); !next.IsZero() {
			out.Body.NextCheckAt = &next
		}
	}
	return out, nil
}
