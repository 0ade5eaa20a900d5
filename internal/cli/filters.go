package cli

import (
	"github.com/raphaelgruber/rikkaview/internal/models"
	"github.com/raphaelgruber/rikkaview/internal/service"
	"github.com/spf13/cobra"
)

// Shared filter flags
var (
	filterAssistant string
	filterFrom      string
	filterTo        string
	filterDateField string
)

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&filterAssistant, "assistant", "a", "", "only conversations whose assistant name contains this text")
	cmd.Flags().StringVar(&filterFrom, "from", "", "only conversations on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filterTo, "to", "", "only conversations on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&filterDateField, "date-field", "", "timestamp the date range applies to: update or create (default from config)")
}

func filterOptions() (service.FilterOptions, error) {
	fieldName := filterDateField
	if fieldName == "" {
		fieldName = cfg.DateField
	}
	field, err := service.ParseDateField(fieldName)
	if err != nil {
		return service.FilterOptions{}, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return service.FilterOptions{}, err
	}

	r, err := service.ParseDateRange(filterFrom, filterTo, field, loc)
	if err != nil {
		return service.FilterOptions{}, err
	}
	return service.FilterOptions{Assistant: filterAssistant, Range: r}, nil
}

// backupView pairs a loaded backup with its filtered subset.
type backupView struct {
	full     *models.Backup
	filtered *models.Backup
}

// narrowed reports whether the filters dropped anything.
func (v *backupView) narrowed() bool {
	return len(v.filtered.Conversations) != len(v.full.Conversations)
}
