package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseDecision(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   string
		want    ApprovalStatus
		wantErr bool
	}{
		{input: "approve", want: ApprovalStatusApproved},
		{input: "APPROVED", want: ApprovalStatusApproved},
		{input: " reject ", want: ApprovalStatusRejected},
		{input: "Rejected", want: ApprovalStatusRejected},
		{input: "", wantErr: true},
		{input: "maybe", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDecision(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				require.Empty(t, got)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExpenseStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	require.False(t, ExpenseStatusDraft.IsTerminal())
	require.False(t, ExpenseStatusPending.IsTerminal())
	require.True(t, ExpenseStatusApproved.IsTerminal())
	require.True(t, ExpenseStatusRejected.IsTerminal())
}

func TestApprovalType_IsValid(t *testing.T) {
	t.Parallel()

	for _, typ := range []ApprovalType{
		ApprovalTypeSequential,
		ApprovalTypePercentage,
		ApprovalTypeSpecificApprover,
		ApprovalTypeHybrid,
	} {
		require.True(t, typ.IsValid(), typ)
	}
	require.False(t, ApprovalType("MAJORITY").IsValid())
	require.False(t, ApprovalType("").IsValid())
}

func TestUser_IsAdmin(t *testing.T) {
	t.Parallel()

	t.Run("admin role", func(t *testing.T) {
		t.Parallel()
		require.True(t, (&User{Role: RoleAdmin}).IsAdmin())
	})

	t.Run("other roles", func(t *testing.T) {
		t.Parallel()
		require.False(t, (&User{Role: RoleManager}).IsAdmin())
		require.False(t, (&User{Role: RoleEmployee}).IsAdmin())
	})

	t.Run("nil user", func(t *testing.T) {
		t.Parallel()
		var u *User
		require.False(t, u.IsAdmin())
	})
}
