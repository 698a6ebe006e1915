package history

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/papapumpkin/lochist/internal/gitcli"
)

// IntegrityReport is the outcome of VerifyIntegrity. Valid is false whenever
// Errors is non-empty.
type IntegrityReport struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func (r *IntegrityReport) fail(format string, args ...any) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *IntegrityReport) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// VerifyIntegrity inspects the project's store without creating or repairing
// it. Problems are collected in the report; the returned error is reserved
// for failures to resolve the project path.
func (m *Manager) VerifyIntegrity(ctx context.Context, projectRoot string) (*IntegrityReport, error) {
	project, err := canonicalPath(projectRoot)
	if err != nil {
		return nil, err
	}
	report := &IntegrityReport{Valid: true}
	dir := m.storeDir(project)
	if _, err := os.Stat(dir); err != nil {
		report.fail("history store does not exist at %s", dir)
		return report, nil
	}
	s := m.newStore(dir, project)
	m.verifyStore(ctx, s, report)
	return report, nil
}

func (m *Manager) verifyStore(ctx context.Context, s *Store, report *IntegrityReport) {
	for _, name := range []string{"HEAD", "objects", "refs"} {
		if _, err := os.Stat(filepath.Join(s.GitDir(), name)); err != nil {
			report.fail("%s is missing", name)
		}
	}
	if err := s.repo.Validate(ctx); err != nil {
		report.fail("failed to open store: %v", err)
		return
	}

	_, ok, err := s.repo.HeadCommit(ctx)
	switch {
	case err != nil:
		report.fail("failed to read HEAD: %v", err)
		return
	case !ok:
		report.warn("history is empty (no commits)")
		return
	}

	commits, err := s.repo.Log(ctx)
	if err != nil {
		report.fail("failed to walk history: %v", err)
		return
	}
	for _, c := range commits {
		if _, err := s.repo.CommitTreeID(ctx, c.ID); err != nil {
			report.fail("commit %s has an unreadable tree: %v", c.ID, err)
		}
		if c.Message == "" {
			report.warn("commit %s has no message", c.ID)
		}
	}
	if err := s.repo.Fsck(ctx); err != nil {
		var gerr *gitcli.Error
		if errors.As(err, &gerr) && gerr.Stderr != "" {
			report.fail("object check failed: %s", gerr.Stderr)
		} else {
			report.fail("object check failed: %v", err)
		}
	}
}

// RepairRepository backs up the store, checks that it can be opened and
// walked, and restores the backup when the check fails. It returns the name
// of the backup it took.
func (m *Manager) RepairRepository(ctx context.Context, projectRoot string) (string, error) {
	s, err := m.located(projectRoot)
	if err != nil {
		return "", err
	}
	unlock, err := m.lock(s)
	if err != nil {
		return "", err
	}
	defer unlock()

	backup, err := m.createBackup(s)
	if err != nil {
		return "", err
	}
	report := &IntegrityReport{Valid: true}
	m.verifyStore(ctx, s, report)
	if report.Valid {
		return backup, nil
	}

	repairErr := gitErr("repairing store", errors.New(report.Errors[0]))
	m.logger.Warn().Strs("errors", report.Errors).Str("backup", backup).Msg("repair failed, restoring backup")
	if err := m.restoreBackup(s, backup); err != nil {
		return backup, errors.Join(repairErr, err)
	}
	return backup, repairErr
}
