package telegram

import (
	"fmt"
	"strings"
	"time"

	coreconfig "github.com/campusgate/campusbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// BuildPoller picks between long polling and a webhook listener based on the
// configured run mode. Anything other than webhook falls back to long polling.
func BuildPoller(tg coreconfig.TelegramConfig, wh coreconfig.WebhookConfig) tele.Poller {
	if strings.EqualFold(strings.TrimSpace(tg.RunMode), coreconfig.RunModeWebhook) {
		return &tele.Webhook{
			Listen:   fmt.Sprintf("%s:%d", wh.Listen, wh.Port),
			Endpoint: &tele.WebhookEndpoint{PublicURL: wh.URL},
		}
	}

	timeout := tg.LongPollTimeoutSeconds
	if timeout <= 0 {
		timeout = 10
	}
	return &tele.LongPoller{Timeout: time.Duration(timeout) * time.Second}
}
