package cli

import (
	"fmt"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/dyike/marktbot/internal/config"
)

// PromptForCredentials asks for whichever marketplace credential is missing.
func PromptForCredentials(cfg *config.Config) error {
	if strings.TrimSpace(cfg.Email) == "" {
		prompt := &survey.Input{
			Message: "Marktplaats e-mail address:",
			Help:    "Set MARKTPLAATS_EMAIL to skip this prompt",
		}
		err := survey.AskOne(prompt, &cfg.Email, survey.WithValidator(func(val interface{}) error {
			if !strings.Contains(strings.TrimSpace(val.(string)), "@") {
				return fmt.Errorf("enter a valid e-mail address")
			}
			return nil
		}))
		if err != nil {
			return err
		}
		cfg.Email = strings.TrimSpace(cfg.Email)
	}

	if cfg.Password == "" {
		prompt := &survey.Password{
			Message: "Marktplaats password:",
			Help:    "Set MARKTPLAATS_PASSWORD to skip this prompt",
		}
		if err := survey.AskOne(prompt, &cfg.Password, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	return nil
}
