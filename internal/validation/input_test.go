package validation

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateBidAmount_Boundary(t *testing.T) {
	budget := decimal.NewFromInt(1000)

	// Ставка, равная бюджету, валидна.
	assert.NoError(t, ValidateBidAmount(decimal.NewFromInt(1000), budget))
	assert.NoError(t, ValidateBidAmount(decimal.NewFromInt(1), budget))

	assert.Error(t, ValidateBidAmount(decimal.RequireFromString("1000.01"), budget))
	assert.Error(t, ValidateBidAmount(decimal.Zero, budget))
	assert.Error(t, ValidateBidAmount(decimal.NewFromInt(-5), budget))
}

func TestValidateBudget(t *testing.T) {
	assert.NoError(t, ValidateBudget(decimal.NewFromInt(100)))
	assert.Error(t, ValidateBudget(decimal.Zero))
	assert.Error(t, ValidateBudget(decimal.NewFromInt(-1)))
	assert.Error(t, ValidateBudget(MaxBudget.Add(decimal.NewFromInt(1))))
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, ValidateEmail("user@example.com"))
	assert.Error(t, ValidateEmail(""))
	assert.Error(t, ValidateEmail("not-an-email"))
	assert.Error(t, ValidateEmail("user@"))
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, ValidatePassword("Passw0rd123"))
	assert.Error(t, ValidatePassword("short1A"))
	assert.Error(t, ValidatePassword("nouppercase1"))
	assert.Error(t, ValidatePassword("NOLOWERCASE1"))
	assert.Error(t, ValidatePassword("NoDigitsHere"))
}

func TestValidateDeliveryDays(t *testing.T) {
	assert.NoError(t, ValidateDeliveryDays(1))
	assert.NoError(t, ValidateDeliveryDays(365))
	assert.Error(t, ValidateDeliveryDays(0))
	assert.Error(t, ValidateDeliveryDays(366))
}

func TestValidateRefundReason(t *testing.T) {
	assert.NoError(t, ValidateRefundReason("Работа не сдана в оговорённый срок"))
	assert.Error(t, ValidateRefundReason("коротко"))
	assert.Error(t, ValidateRefundReason(strings.Repeat("а", MaxRefundReasonLength+1)))
}

func TestValidateDisputeDescription(t *testing.T) {
	assert.NoError(t, ValidateDisputeDescription("Результат не соответствует техническому заданию"))
	assert.Error(t, ValidateDisputeDescription("мало текста"))
}

func TestValidateDisputeMessage(t *testing.T) {
	assert.NoError(t, ValidateDisputeMessage("Прикладываю переписку по условиям"))
	assert.Error(t, ValidateDisputeMessage(""))
	assert.Error(t, ValidateDisputeMessage("   "))
	assert.Error(t, ValidateDisputeMessage(strings.Repeat("а", MaxDisputeMessageLength+1)))
}
