package cmd

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"S3Joiner/internal/config"
	"S3Joiner/internal/notifier"

	"github.com/spf13/cobra"
)

const webhookEnv = config.EnvPrefix + "_NOTIFICATIONS_DISCORD_WEBHOOK_URL"

// notificationEdit is a set of changes to the notifications and metrics
// sections. Nil fields are left as they are.
type notificationEdit struct {
	webhookURL     *string
	discord        *bool
	global         *bool
	events         []string
	mentionOnError *string
	pushgatewayURL *string
}

func (e notificationEdit) empty() bool {
	return e.webhookURL == nil && e.discord == nil && e.global == nil &&
		e.events == nil && e.mentionOnError == nil && e.pushgatewayURL == nil
}

func (e notificationEdit) apply(cfg *config.Config) error {
	if cfg.Notifications == nil {
		cfg.Notifications = &config.NotificationsConfig{}
	}
	if cfg.Notifications.Discord == nil {
		cfg.Notifications.Discord = &config.DiscordConfig{}
	}
	d := cfg.Notifications.Discord

	if e.webhookURL != nil {
		u := strings.TrimSpace(*e.webhookURL)
		if u != "" {
			if parsed, err := url.Parse(u); err != nil || parsed.Scheme != "https" || parsed.Host == "" {
				return fmt.Errorf("webhook url %q: want an https URL", u)
			}
		}
		d.WebhookURL = u
	}
	if e.discord != nil {
		if *e.discord && d.WebhookURL == "" && os.Getenv(webhookEnv) == "" {
			return fmt.Errorf("cannot enable Discord without a webhook url (flag or %s)", webhookEnv)
		}
		d.Enabled = *e.discord
	}
	if e.global != nil {
		cfg.Notifications.Enabled = boolPtr(*e.global)
	}
	if e.events != nil {
		var events []string
		for _, ev := range e.events {
			ev = strings.ToLower(strings.TrimSpace(ev))
			if ev == "" || ev == "all" {
				continue
			}
			if !slices.Contains(notifier.Events, ev) {
				return fmt.Errorf("unknown event %q (use: %s)", ev, strings.Join(notifier.Events, ", "))
			}
			if !slices.Contains(events, ev) {
				events = append(events, ev)
			}
		}
		d.Events = events
	}
	if e.mentionOnError != nil {
		if m := strings.TrimSpace(*e.mentionOnError); m == "" {
			d.Mentions = nil
		} else {
			d.Mentions = &config.DiscordMentions{OnError: m}
		}
	}
	if e.pushgatewayURL != nil {
		if cfg.Metrics == nil {
			cfg.Metrics = &config.MetricsConfig{}
		}
		cfg.Metrics.PushgatewayURL = strings.TrimSpace(*e.pushgatewayURL)
	}
	return nil
}

var notifyFlags struct {
	webhookURL  string
	discord     bool
	global      bool
	events      []string
	mention     string
	pushgateway string
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configNotificationsCmd)
	f := configNotificationsCmd.Flags()
	f.StringVar(&notifyFlags.webhookURL, "webhook-url", "", "Discord webhook URL, empty to clear (or set "+webhookEnv+")")
	f.BoolVar(&notifyFlags.discord, "discord", false, "Turn Discord notifications on or off (--discord=false)")
	f.BoolVar(&notifyFlags.global, "notifications", false, "Global notification switch (--notifications=false)")
	f.StringSliceVar(&notifyFlags.events, "events", nil, "Events to send: "+strings.Join(notifier.Events, ",")+" or all")
	f.StringVar(&notifyFlags.mention, "mention-on-error", "", "Mention added to warning and error messages, e.g. <@&role-id>")
	f.StringVar(&notifyFlags.pushgateway, "pushgateway-url", "", "Prometheus Pushgateway for run metrics, empty to disable")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configNotificationsCmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"webhooks"},
	Short:   "Configure Discord notifications and the metrics Pushgateway",
	Long:    "Show the notification settings and change them with flags. Without flags the command prompts for the Discord settings.",
	RunE:    runConfigNotifications,
}

func editFromFlags(cmd *cobra.Command) notificationEdit {
	var e notificationEdit
	changed := cmd.Flags().Changed
	if changed("webhook-url") {
		e.webhookURL = &notifyFlags.webhookURL
	}
	if changed("discord") {
		e.discord = &notifyFlags.discord
	}
	if changed("notifications") {
		e.global = &notifyFlags.global
	}
	if changed("events") {
		e.events = append([]string{}, notifyFlags.events...)
	}
	if changed("mention-on-error") {
		e.mentionOnError = &notifyFlags.mention
	}
	if changed("pushgateway-url") {
		e.pushgatewayURL = &notifyFlags.pushgateway
	}
	return e
}

func runConfigNotifications(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		return err
	}
	edit := editFromFlags(cmd)
	if edit.empty() {
		printNotificationStatus(cmd, cfg)
		cmd.Println()
		edit = promptNotificationEdit(cfg, bufio.NewReader(os.Stdin))
	}
	if err := edit.apply(cfg); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	path := config.ResolveConfigPath()
	if err := config.Write(cfg, path); err != nil {
		return err
	}
	cmd.Printf("Configuration saved to %s\n", path)
	printNotificationStatus(cmd, cfg)
	return nil
}

func promptNotificationEdit(cfg *config.Config, reader *bufio.Reader) notificationEdit {
	var d config.DiscordConfig
	if cfg.Notifications != nil && cfg.Notifications.Discord != nil {
		d = *cfg.Notifications.Discord
	}
	var e notificationEdit
	if u := prompt(reader, "Discord webhook URL (Enter to keep)", ""); u != "" {
		e.webhookURL = &u
	}
	discord := confirm(reader, "Send join notifications to Discord?", d.Enabled)
	e.discord = &discord
	global := confirm(reader, "Enable notifications globally?", config.NotificationsEnabled(cfg.Notifications))
	e.global = &global
	current := "all"
	if len(d.Events) > 0 {
		current = strings.Join(d.Events, ",")
	}
	events := prompt(reader, "Events ("+strings.Join(notifier.Events, ",")+")", current)
	e.events = strings.Split(events, ",")
	return e
}

func printNotificationStatus(cmd *cobra.Command, cfg *config.Config) {
	cmd.Printf("  Notifications (global): %s\n", onOff(config.NotificationsEnabled(cfg.Notifications)))
	if cfg.Notifications == nil || cfg.Notifications.Discord == nil {
		cmd.Println("  Discord: not configured")
	} else {
		d := cfg.Notifications.Discord
		cmd.Printf("  Discord: %s\n", onOff(d.Enabled))
		switch {
		case d.WebhookURL != "":
			cmd.Printf("    Webhook: %s\n", redactWebhook(d.WebhookURL))
		case os.Getenv(webhookEnv) != "":
			cmd.Printf("    Webhook: (from %s)\n", webhookEnv)
		default:
			cmd.Println("    Webhook: (not set)")
		}
		events := "all"
		if len(d.Events) > 0 {
			events = strings.Join(d.Events, ", ")
		}
		cmd.Printf("    Events: %s\n", events)
		if d.Mentions != nil && d.Mentions.OnError != "" {
			cmd.Printf("    Mention on error: %s\n", d.Mentions.OnError)
		}
	}
	if cfg.Metrics != nil && cfg.Metrics.PushgatewayURL != "" {
		cmd.Printf("  Pushgateway: %s\n", cfg.Metrics.PushgatewayURL)
	} else {
		cmd.Println("  Pushgateway: (not set)")
	}
}

// redactWebhook hides the token segment of a Discord webhook URL
// (https://discord.com/api/webhooks/<id>/<token>).
func redactWebhook(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "(invalid url)"
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 {
		parts[len(parts)-1] = "***"
	}
	return u.Scheme + "://" + u.Host + "/" + strings.Join(parts, "/")
}

func onOff(b bool) string {
	if b {
		return "enabled"
	}
	return "disabled"
}

func boolPtr(b bool) *bool {
	return &b
}
