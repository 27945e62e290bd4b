package window

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/jmylchreest/winsession/internal/model"
)

// Restore reopens the saved session around the main window: it applies
// the main window's preset, starts tracking it, reopens every recorded
// window at its saved label and prunes whatever could not be reopened.
// The main window is shown and focused however restoration goes.
func (s *Service) Restore(ctx context.Context) error {
	if !s.isMain {
		return ErrNotMain
	}
	defer s.present()

	var seed *model.CategoryPreset
	if preset, ok := s.registry.GetCategoryPreset(model.MainCategory); ok {
		seed = &preset
		s.applyPreset(preset)
	}
	s.track(s.owner, model.MainCategory, model.WindowTypeMain, "/", seed)

	records := s.registry.GetActiveWindows()
	labels := make([]string, 0, len(records))
	for label := range records {
		labels = append(labels, label)
	}
	slices.Sort(labels)

	var g errgroup.Group
	for _, label := range labels {
		if label == model.MainLabel {
			continue
		}
		rec := records[label]
		opts := Options{Label: label, Category: rec.Category}

		switch rec.Type {
		case model.WindowTypeAux:
			g.Go(func() error {
				_, err := s.OpenAuxiliaryWindow(ctx, rec.URL, opts)
				return err
			})
		case model.WindowTypeChild:
			g.Go(func() error {
				_, err := s.OpenChildWindow(ctx, rec.URL, opts)
				return err
			})
		default:
			s.logger.Warn("skipping window of unknown type", "label", label, "type", rec.Type)
		}
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("some windows could not be restored", "error", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	live := []string{model.MainLabel}
	live = append(live, s.AuxLabels()...)
	live = append(live, s.ModalLabels()...)
	pruned := s.registry.PruneInactiveWindows(live)

	s.logger.Info("session restored",
		"workspace", s.registry.Workspace(),
		"aux", len(s.AuxLabels()),
		"children", len(s.ModalLabels()),
		"pruned", pruned,
	)
	return nil
}

func (s *Service) applyPreset(preset model.CategoryPreset) {
	if err := s.owner.SetPosition(preset.X, preset.Y); err != nil {
		s.logger.Error("failed to restore main window position", "error", err)
		return
	}
	if err := s.owner.SetSize(preset.Width, preset.Height); err != nil {
		s.logger.Error("failed to restore main window size", "error", err)
		return
	}
	if preset.Maximized {
		if err := s.owner.Maximize(); err != nil {
			s.logger.Error("failed to maximize main window", "error", err)
		}
	}
}

func (s *Service) present() {
	if err := s.owner.Show(); err != nil {
		s.logger.Error("failed to show main window", "error", err)
	}
	if err := s.owner.SetFocus(); err != nil {
		s.logger.Debug("failed to focus main window", "error", err)
	}
}
