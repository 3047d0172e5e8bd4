package jobs

// Config holds the scheduled-job settings. Schedules use six-field cron
// expressions with a leading seconds column.
type Config struct {
	// Enabled turns the scheduler on. Disabled schedulers register nothing.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// SweepSchedule is the cron expression for the blob grace-period sweep.
	SweepSchedule string `mapstructure:"sweep_schedule" default:"0 0 3 * * *"`
	// ScanSchedule is the cron expression for the orphan/duplicate scan.
	ScanSchedule string `mapstructure:"scan_schedule" default:"0 30 3 * * *"`
}
