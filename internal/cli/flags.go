package cli

import (
	"fmt"

	"github.com/rileyhilliard/hostwatch/internal/config"
	"github.com/rileyhilliard/hostwatch/internal/errors"
	"github.com/rileyhilliard/hostwatch/internal/monitor"
)

// selectUsers resolves the user ids a command should act on. With no
// explicit ids every configured target is selected.
func selectUsers(cfg *config.Config, raw []string) ([]monitor.UserID, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New(errors.ErrConfig,
			"No targets configured",
			"Add a 'targets' section to your config, or run 'hostwatch config init' for an example.")
	}

	if len(raw) == 0 {
		return cfg.UserIDs()
	}

	seen := make(map[monitor.UserID]bool, len(raw))
	ids := make([]monitor.UserID, 0, len(raw))
	for _, s := range raw {
		id, err := config.ParseUserID(s)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("'%s' doesn't look like a user id", s),
				"User ids are the numeric keys under 'targets' in your config.")
		}
		if _, ok := cfg.Target(id); !ok {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("No target configured for user %d", id),
				"Check the keys under 'targets' in your config.")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids, nil
}
