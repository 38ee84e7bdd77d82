package telegram

import (
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	vietnam = time.FixedZone("ICT", 7*60*60)
	printer = message.NewPrinter(language.Vietnamese)
)

// FormatNumber groups digits the Vietnamese way, 799000 -> "799.000".
func FormatNumber(n int64) string {
	return printer.Sprintf("%d", n)
}

func FormatVND(n int64) string {
	return FormatNumber(n) + " đ"
}

// FormatTime renders t in Vietnam time as "15:04:05 2/1/2006".
func FormatTime(t time.Time) string {
	return t.In(vietnam).Format("15:04:05 2/1/2006")
}
