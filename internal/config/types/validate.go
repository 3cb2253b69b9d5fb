package types

import (
	"errors"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/yusing/fswatch-forward/internal/gperr"
	"github.com/yusing/fswatch-forward/internal/utils"
)

// Validate checks every field, normalizes watch roots to
// absolute cleaned paths without duplicates, and returns the forward target.
//
// Every failure is an ErrConfiguration.
func (cfg *Config) Validate() (ForwardTarget, gperr.Error) {
	errs := gperr.NewBuilder("")

	if err := utils.Validator().Struct(cfg); err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, vErr := range vErrs {
				errs.Add(utils.ErrValidationError.Subject(vErr.Namespace()).Withf("%s=%s", vErr.Tag(), vErr.Param()))
			}
		} else {
			errs.Add(err)
		}
	}

	roots := make([]string, 0, len(cfg.WatchRoots))
	for _, root := range cfg.WatchRoots {
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			errs.Add(gperr.Wrap(err).Subject(root))
			continue
		}
		if !slices.Contains(roots, abs) {
			roots = append(roots, abs)
		}
	}
	cfg.WatchRoots = roots

	var target ForwardTarget
	var err gperr.Error
	if cfg.ForwardTo != "" {
		target, err = parseForwardTarget(cfg.ForwardTo)
	} else {
		target, err = newForwardTarget(cfg.ForwardHost, cfg.ForwardPort)
	}
	errs.Add(err)

	if errs.HasError() {
		return ForwardTarget{}, gperr.ErrConfiguration.With(errs.Error())
	}
	return target, nil
}
