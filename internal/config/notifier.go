package config

// Notifier selects the alert channel: "pushover" or "telegram".
type Notifier struct {
	Kind string `env:"NOTIFIER" envDefault:"pushover"`

	PushoverUserKey  string `env:"PUSHOVER_USER_KEY" json:"-"`
	PushoverAppToken string `env:"PUSHOVER_APP_TOKEN" json:"-"`

	TelegramBotToken string `env:"TG_BOT_TOKEN" json:"-"`
	TelegramChatID   int64  `env:"TG_CHAT_ID"`
}
