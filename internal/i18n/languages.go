package i18n

import (
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/wardenbot/warden/resources"
)

func GetLanguagesList() []string {
	languages := []string{"en"}
	entries, err := resources.FS.ReadDir("i18n")
	if err != nil {
		log.WithError(err).Errorln("cant list i18n resources")
		return languages
	}
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".yml") {
			continue
		}
		languages = append(languages, strings.TrimSuffix(name, ".yml"))
	}
	return languages
}
