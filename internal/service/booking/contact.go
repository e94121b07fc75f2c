package booking

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"

	"github.com/valentina-code311/tu-lugar-seguro-sub001/internal/domain"
)

const (
	maxNameLength    = 200
	maxMessageLength = 2000
)

type contact struct {
	Name     string
	Email    string
	Phone    string
	Pronouns string
	Message  string
}

// normalizeContact validates client details. Phones are stored in E.164, emails lower-cased.
func normalizeContact(in CreateInput, region string) (contact, error) {
	c := contact{
		Name:     strings.TrimSpace(in.ClientName),
		Pronouns: strings.TrimSpace(in.ClientPronouns),
		Message:  strings.TrimSpace(in.ClientMessage),
	}
	if c.Name == "" {
		return contact{}, domain.Invalid("client_name", "is required")
	}
	if utf8.RuneCountInString(c.Name) > maxNameLength {
		return contact{}, domain.Invalid("client_name", "too long")
	}
	if utf8.RuneCountInString(c.Message) > maxMessageLength {
		return contact{}, domain.Invalid("client_message", "too long")
	}

	email := strings.TrimSpace(in.ClientEmail)
	phone := strings.TrimSpace(in.ClientPhone)
	if email == "" && phone == "" {
		return contact{}, domain.Invalid("contact", "an email or a phone number is required")
	}
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return contact{}, domain.Invalid("client_email", "is not a valid address")
		}
		c.Email = strings.ToLower(addr.Address)
	}
	if phone != "" {
		e164, err := normalizePhone(phone, region)
		if err != nil {
			return contact{}, err
		}
		c.Phone = e164
	}
	return c, nil
}

func normalizePhone(raw, region string) (string, error) {
	num, err := phonenumbers.Parse(raw, region)
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", domain.Invalid("client_phone", "is not a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
