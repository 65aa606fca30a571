package config

func JobTemplate(name, jobName string) *JobConfig {
	switch name {
	case "daily":
		return &JobConfig{
			Name:         jobName,
			Enabled:      true,
			InputPrefix:  DefaultInputPrefix,
			OutputPrefix: DefaultOutputPrefix,
			OutputExt:    DefaultOutputExt,
			DayOffset:    intPtr(DefaultDayOffset),
			Schedule:     &ScheduleConfig{Period: "day", Times: 1, JitterMinutes: 10},
			Retention:    &RetentionConfig{Days: 30},
			Lock:         &LockConfig{Enabled: true, TTLMinutes: 60},
		}
	case "compressed":
		return &JobConfig{
			Name:         jobName,
			Enabled:      true,
			InputPrefix:  DefaultInputPrefix,
			OutputPrefix: DefaultOutputPrefix,
			OutputExt:    DefaultOutputExt,
			DayOffset:    intPtr(DefaultDayOffset),
			Compression:  CompressionZstd,
			Schedule:     &ScheduleConfig{Period: "day", Times: 1, JitterMinutes: 10},
			Retention:    &RetentionConfig{Days: 90},
			Lock:         &LockConfig{Enabled: true, TTLMinutes: 60},
		}
	default:
		return nil
	}
}

func JobTemplateNames() []string {
	return []string{"daily", "compressed"}
}

func intPtr(n int) *int {
	return &n
}
