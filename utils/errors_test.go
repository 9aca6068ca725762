package utils_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aruizmx/comandero/utils"
)

func TestValidationErrors(t *testing.T) {
	err := utils.Validationf("occupy", "table %d is %s", 5, "occupied")
	assert.Equal(t, "occupy: table 5 is occupied", err.Error())
	assert.True(t, utils.IsValidation(err))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, utils.IsValidation(wrapped))

	assert.False(t, utils.IsValidation(fmt.Errorf("plain failure")))
	assert.False(t, utils.IsValidation(nil))
}
