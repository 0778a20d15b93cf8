package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestDebt_StatusAndOverdue は支払い状態と期限切れ判定を検証します。
func TestDebt_StatusAndOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name        string
		debt        Debt
		wantStatus  string
		wantOverdue bool
	}{
		{"pending past due", Debt{DueDate: &past}, "Pending", true},
		{"pending future due", Debt{DueDate: &future}, "Pending", false},
		{"pending without due date", Debt{}, "Pending", false},
		{"paid past due", Debt{Paid: true, DueDate: &past}, "Paid", false},
		{"due exactly now", Debt{DueDate: &now}, "Pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantStatus, tt.debt.Status())
			assert.Equal(t, tt.wantOverdue, tt.debt.IsOverdue(now))
		})
	}
}
