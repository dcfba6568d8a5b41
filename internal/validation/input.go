package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Константы валидации
const (
	MinUsernameLength         = 3
	MaxUsernameLength         = 30
	MinProjectTitleLength     = 3
	MaxProjectTitleLength     = 200
	MinProjectDescription     = 10
	MaxProjectDescription     = 5000
	MinBidProposalLength      = 50
	MaxBidProposalLength      = 2000
	MinDeliveryDays           = 1
	MaxDeliveryDays           = 365
	MinRefundReasonLength     = 20
	MaxRefundReasonLength     = 1000
	MinDisputeDescription     = 20
	MaxDisputeDescription     = 3000
	MaxDisputeMessageLength   = 3000
)

// MinBidAmount — нижняя граница суммы ставки.
var MinBidAmount = decimal.NewFromInt(1)

// MaxBudget — верхняя граница бюджета проекта (100 миллионов USDT).
var MaxBudget = decimal.NewFromInt(100000000)

// ValidateLength проверяет длину строки в рунах.
func ValidateLength(fieldName, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if min > 0 && length < min {
		return fmt.Errorf("%s должен быть не менее %d символов", fieldName, min)
	}
	if max > 0 && length > max {
		return fmt.Errorf("%s должен быть не более %d символов", fieldName, max)
	}
	return nil
}

// ValidateEmail проверяет формат email.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email обязателен")
	}

	email = strings.ToLower(strings.TrimSpace(email))

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return fmt.Errorf("некорректный формат email")
	}

	localPart := parts[0]
	domainPart := parts[1]

	if len(localPart) == 0 || len(localPart) > 64 {
		return fmt.Errorf("локальная часть email должна быть от 1 до 64 символов")
	}
	if len(domainPart) == 0 || len(domainPart) > 255 {
		return fmt.Errorf("доменная часть email должна быть от 1 до 255 символов")
	}

	localRegex := regexp.MustCompile(`^[a-z0-9._+-]+$`)
	if !localRegex.MatchString(localPart) {
		return fmt.Errorf("локальная часть email содержит недопустимые символы")
	}

	domainRegex := regexp.MustCompile(`^[a-z0-9.-]+\.[a-z]{2,}$`)
	if !domainRegex.MatchString(domainPart) {
		return fmt.Errorf("доменная часть email имеет некорректный формат")
	}

	return nil
}

// ValidateUsername проверяет имя пользователя.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("имя пользователя обязательно")
	}

	username = strings.TrimSpace(username)

	if err := ValidateLength("имя пользователя", username, MinUsernameLength, MaxUsernameLength); err != nil {
		return err
	}

	usernameRegex := regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("имя пользователя может содержать только буквы, цифры и подчеркивание")
	}

	if unicode.IsDigit(rune(username[0])) {
		return fmt.Errorf("имя пользователя не может начинаться с цифры")
	}

	return nil
}

// ValidateProjectTitle проверяет заголовок проекта.
func ValidateProjectTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("заголовок проекта обязателен")
	}
	return ValidateLength("заголовок проекта", strings.TrimSpace(title), MinProjectTitleLength, MaxProjectTitleLength)
}

// ValidateProjectDescription проверяет описание проекта.
func ValidateProjectDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("описание проекта обязательно")
	}
	return ValidateLength("описание проекта", strings.TrimSpace(description), MinProjectDescription, MaxProjectDescription)
}

// ValidateBudget проверяет бюджет проекта.
func ValidateBudget(budget decimal.Decimal) error {
	if !budget.IsPositive() {
		return fmt.Errorf("бюджет должен быть положительным")
	}
	if budget.GreaterThan(MaxBudget) {
		return fmt.Errorf("бюджет не может превышать %s", MaxBudget.String())
	}
	return nil
}

// ValidateBidAmount проверяет сумму ставки относительно бюджета проекта.
// Граница включительная: ставка, равная бюджету, валидна.
func ValidateBidAmount(amount, budget decimal.Decimal) error {
	if amount.LessThan(MinBidAmount) {
		return fmt.Errorf("сумма ставки должна быть не менее %s", MinBidAmount.String())
	}
	if amount.GreaterThan(budget) {
		return fmt.Errorf("сумма ставки не может превышать бюджет проекта")
	}
	return nil
}

// ValidateBidProposal проверяет текст предложения в ставке.
func ValidateBidProposal(proposal string) error {
	return ValidateLength("текст предложения", strings.TrimSpace(proposal), MinBidProposalLength, MaxBidProposalLength)
}

// ValidateDeliveryDays проверяет срок выполнения в днях.
func ValidateDeliveryDays(days int) error {
	if days < MinDeliveryDays || days > MaxDeliveryDays {
		return fmt.Errorf("срок выполнения должен быть от %d до %d дней", MinDeliveryDays, MaxDeliveryDays)
	}
	return nil
}

// ValidateRefundReason проверяет причину запроса возврата.
func ValidateRefundReason(reason string) error {
	return ValidateLength("причина возврата", strings.TrimSpace(reason), MinRefundReasonLength, MaxRefundReasonLength)
}

// ValidateDisputeDescription проверяет описание спора.
func ValidateDisputeDescription(description string) error {
	return ValidateLength("описание спора", strings.TrimSpace(description), MinDisputeDescription, MaxDisputeDescription)
}

// ValidateDisputeMessage проверяет сообщение в споре.
func ValidateDisputeMessage(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("сообщение не может быть пустым")
	}
	return ValidateLength("сообщение", strings.TrimSpace(content), 0, MaxDisputeMessageLength)
}
