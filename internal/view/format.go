package view

import (
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/langchou/fuhrpark/internal/service"
)

const placeholder = "-"

var printer = message.NewPrinter(language.German)

// FormatNumber 德语数字格式，nil 显示为 -
func FormatNumber(v *float64) string {
	if v == nil {
		return placeholder
	}
	return formatFloat(*v)
}

// FormatInt 整数版本
func FormatInt(v int) string {
	return printer.Sprintf("%d", v)
}

// FormatCurrency 欧元金额，不保留小数
func FormatCurrency(v *float64) string {
	if v == nil {
		return placeholder
	}
	return FormatEuro(*v)
}

// FormatEuro 非可选版本
func FormatEuro(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v))) + "\u00a0€"
}

// FormatThousands 图表 Y 轴刻度，如 12k
func FormatThousands(v float64) string {
	return printer.Sprintf("%d", int64(math.Round(v/1000))) + "k"
}

// FormatDate dd.MM.yyyy；无法解析时原样返回，空值显示为 -
func FormatDate(s *string) string {
	if s == nil || *s == "" {
		return placeholder
	}
	t, ok := service.ParseDate(*s, time.Local)
	if !ok {
		return *s
	}
	return t.Format("02.01.2006")
}

func formatFloat(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(3)))
}
