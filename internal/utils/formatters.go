package utils

import (
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var pricePrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice : 1234.5 → "$1,234.50"
func FormatPrice(price float64) string {
	if price < 0 {
		return pricePrinter.Sprintf("-$%.2f", -price)
	}
	return pricePrinter.Sprintf("$%.2f", price)
}

// FormatDate : "January 2, 2006"
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// GenerateOrderID : ORD-<unix ms>-<9 caractères base36 en majuscules>
func GenerateOrderID(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(strconv.FormatUint(binary.BigEndian.Uint64(id[:8]), 36))
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return "ORD-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix[:9]
}

// CardLast4 garde les 4 derniers chiffres d'un numéro de carte.
func CardLast4(cardNumber string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, cardNumber)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}
