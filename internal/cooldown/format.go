package cooldown

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const remainingKey = "cooldown.remaining"

var supported = []language.Tag{language.English, language.Chinese}

var matcher = language.NewMatcher(supported)

func init() {
	message.SetString(language.English, remainingKey, "%dh %dm %ds")
	message.SetString(language.Chinese, remainingKey, "剩余 %d小时 %d分 %d秒")
}

// Countdown renders d as hours, minutes and seconds in the closest
// supported language, English by default.
func Countdown(tag language.Tag, d time.Duration) string {
	if d < 0 {
		d = 0
	}
	// round up so a lock never reads 0s while still active
	secs := int((d + time.Second - 1) / time.Second)
	_, i, _ := matcher.Match(tag)
	p := message.NewPrinter(supported[i])
	return p.Sprintf(remainingKey, secs/3600, secs%3600/60, secs%60)
}

// ParseLang resolves a BCP 47 string such as "zh-CN", falling back to
// English.
func ParseLang(s string) language.Tag {
	tag, err := language.Parse(s)
	if err != nil {
		return language.English
	}
	return tag
}
