package dynamodb

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveUserTransactItems_GuardsEmailUniqueness(t *testing.T) {
	item := userItem{
		PK:     "USER#user-1",
		SK:     "PROFILE",
		UserID: "user-1",
		Email:  "alice@example.com",
	}

	transactItems, err := saveUserTransactItems("dome", item)
	require.NoError(t, err)
	require.Len(t, transactItems, 2)

	profile := transactItems[0].Put
	require.NotNil(t, profile)
	assert.Nil(t, profile.ConditionExpression, "profile put must stay unconditional for updates")

	guard := transactItems[1].Put
	require.NotNil(t, guard)
	require.NotNil(t, guard.ConditionExpression)
	assert.Equal(t, "attribute_not_exists(PK) OR UserID = :uid", *guard.ConditionExpression)

	uid, ok := guard.ExpressionAttributeValues[":uid"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "user-1", uid.Value)

	pk, ok := guard.Item["PK"].(*types.AttributeValueMemberS)
	require.True(t, ok)
	assert.Equal(t, "EMAIL#alice@example.com", pk.Value)
}

func TestIsEmailTaken(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "conditional check failure on the guard",
			err: &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("None")},
					{Code: aws.String("ConditionalCheckFailed")},
				},
			},
			want: true,
		},
		{
			name: "transaction canceled for another reason",
			err: &types.TransactionCanceledException{
				CancellationReasons: []types.CancellationReason{
					{Code: aws.String("TransactionConflict")},
				},
			},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("throughput exceeded"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isEmailTaken(tt.err))
		})
	}
}
