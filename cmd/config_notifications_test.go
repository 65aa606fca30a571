package cmd

import (
	"slices"
	"testing"

	"S3Joiner/internal/config"
)

func strPtr(s string) *string { return &s }

func TestNotificationEdit_Apply(t *testing.T) {
	t.Setenv(webhookEnv, "")
	cfg := &config.Config{}

	edit := notificationEdit{
		webhookURL:     strPtr(" https://discord.com/api/webhooks/1/tok "),
		discord:        boolPtr(true),
		global:         boolPtr(true),
		events:         []string{"Error", "warning", "error", ""},
		mentionOnError: strPtr("<@&42>"),
		pushgatewayURL: strPtr("http://pushgateway:9091"),
	}
	if err := edit.apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	d := cfg.Notifications.Discord
	if d.WebhookURL != "https://discord.com/api/webhooks/1/tok" || !d.Enabled {
		t.Errorf("discord = %+v", d)
	}
	if !slices.Equal(d.Events, []string{"error", "warning"}) {
		t.Errorf("events = %v", d.Events)
	}
	if d.Mentions == nil || d.Mentions.OnError != "<@&42>" {
		t.Errorf("mentions = %+v", d.Mentions)
	}
	if !config.NotificationsEnabled(cfg.Notifications) || cfg.Metrics.PushgatewayURL != "http://pushgateway:9091" {
		t.Errorf("notifications = %+v, metrics = %+v", cfg.Notifications, cfg.Metrics)
	}

	// Nil fields leave settings alone; "all" clears the filter.
	if err := (notificationEdit{events: []string{"all"}, mentionOnError: strPtr("")}).apply(cfg); err != nil {
		t.Fatal(err)
	}
	if d.Events != nil || d.Mentions != nil || d.WebhookURL == "" || !d.Enabled {
		t.Errorf("after second edit discord = %+v", d)
	}
}

func TestNotificationEdit_Rejects(t *testing.T) {
	t.Setenv(webhookEnv, "")
	tests := []struct {
		name string
		edit notificationEdit
	}{
		{"plain http webhook", notificationEdit{webhookURL: strPtr("http://discord.com/api/webhooks/1/tok")}},
		{"unknown event", notificationEdit{events: []string{"finished"}}},
		{"enable without webhook", notificationEdit{discord: boolPtr(true)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.edit.apply(&config.Config{}); err == nil {
				t.Error("apply accepted the edit")
			}
		})
	}
}

func TestNotificationEdit_EnableWithWebhookFromEnv(t *testing.T) {
	t.Setenv(webhookEnv, "https://discord.com/api/webhooks/1/tok")
	cfg := &config.Config{}
	if err := (notificationEdit{discord: boolPtr(true)}).apply(cfg); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !cfg.Notifications.Discord.Enabled {
		t.Error("discord not enabled")
	}
}

func TestRedactWebhook(t *testing.T) {
	tests := map[string]string{
		"https://discord.com/api/webhooks/123/secret-token": "https://discord.com/api/webhooks/123/***",
		"https://example.com/hook":                          "https://example.com/hook",
		"not a url":                                         "(invalid url)",
	}
	for in, want := range tests {
		if got := redactWebhook(in); got != want {
			t.Errorf("redactWebhook(%q) = %q, want %q", in, got, want)
		}
	}
}
