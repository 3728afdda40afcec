// defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Sets default values for the configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("catalog.endpoint", "https://catalog.roproxy.com/v1/search/items/details")
	viper.SetDefault("catalog.pagesize", 10)
	viper.SetDefault("catalog.pagedelay", 500*time.Millisecond)
	viper.SetDefault("catalog.timeout", 10*time.Second)
	viper.SetDefault("catalog.retries", 1)

	viper.SetDefault("thumbnails.endpoint", "https://thumbnails.roproxy.com/v1/assets")
	viper.SetDefault("thumbnails.size", "420x420")
	viper.SetDefault("thumbnails.format", "Png")
	viper.SetDefault("thumbnails.timeout", 10*time.Second)
	viper.SetDefault("thumbnails.retries", 1)
	viper.SetDefault("thumbnails.cachettl", 1*time.Hour)
	viper.SetDefault("thumbnails.negativettl", 10*time.Minute)

	viper.SetDefault("classifier.modelpath", "model.tflite")
	viper.SetDefault("classifier.labelpath", "labels.txt")
	viper.SetDefault("classifier.positivelabel", "Class 1")
	viper.SetDefault("classifier.threshold", 0.7)
	viper.SetDefault("classifier.inputsize", 224)
	viper.SetDefault("classifier.threads", 0)

	viper.SetDefault("scan.keywords", []string{})
	viper.SetDefault("scan.limit", 100)
	viper.SetDefault("scan.imagetimeout", 30*time.Second)

	viper.SetDefault("flaglog.path", "not-moderated.txt")
	viper.SetDefault("flaglog.dedupe", false)

	viper.SetDefault("notify.enabled", false)
	viper.SetDefault("notify.webhookurl", "")

	viper.SetDefault("schedule.at", "10:00")

	viper.SetDefault("metrics.enabled", false)
	viper.SetDefault("metrics.listen", ":9090")

	viper.SetDefault("inventory.endpoint", "https://inventory.roblox.com/v2/users")
	viper.SetDefault("inventory.pagesize", 100)
	viper.SetDefault("inventory.timeout", 10*time.Second)
	viper.SetDefault("inventory.assettype", 13)
}
