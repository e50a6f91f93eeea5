package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/invrestore/internal/store"
	"github.com/hyperengineering/invrestore/internal/validation"
)

var timezoneCmd = &cobra.Command{
	Use:   "timezone <player-uuid> <zone>",
	Short: "Set the timezone a player sees snapshot times in",
	Long: "Store an IANA timezone (for example Europe/Amsterdam) as the player's preference. " +
		"It is used by list and view when the player is passed as --viewer. While run is " +
		"recording, send a set_timezone message on its host feed instead.",
	Args: cobra.ExactArgs(2),
	RunE: runTimezone,
}

func runTimezone(cmd *cobra.Command, args []string) error {
	player, zone := args[0], args[1]

	var c validation.Collector
	c.Add(validation.ValidateUUID("player", player))
	if err := c.Err(); err != nil {
		return err
	}
	id, err := uuid.Parse(player)
	if err != nil {
		return fmt.Errorf("player: %w", err)
	}
	if verr := validation.ValidateTimezone("zone", zone); verr != nil {
		return report(cmd, "Invalid zone "+zone, verr)
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	lock, err := lockDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	err = st.UpdatePreferences(id, func(p store.Preferences) store.Preferences {
		p.Timezone = zone
		return p
	})
	if err != nil {
		return err
	}
	if err := st.Save(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated your timezone preference to %s\n", zone)
	return nil
}
