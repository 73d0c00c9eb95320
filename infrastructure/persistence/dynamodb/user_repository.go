package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dome-backend/application/ports"
	"dome-backend/domain/core/entities"
	pkgerrors "dome-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// UserRepository implements the user repository on DynamoDB. Email lookups
// go through a GSI keyed on the normalized address.
type UserRepository struct {
	client     *dynamodb.Client
	tableName  string
	emailIndex string
	logger     *zap.Logger
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(client *dynamodb.Client, tableName, emailIndex string, logger *zap.Logger) ports.UserRepository {
	return &UserRepository{
		client:     client,
		tableName:  tableName,
		emailIndex: emailIndex,
		logger:     logger,
	}
}

// userItem represents the DynamoDB item structure for a user
type userItem struct {
	PK           string `dynamodbav:"PK"` // USER#<userID>
	SK           string `dynamodbav:"SK"` // PROFILE
	EntityType   string `dynamodbav:"EntityType"`
	UserID       string `dynamodbav:"UserID"`
	Email        string `dynamodbav:"Email"` // GSI partition key
	PasswordHash string `dynamodbav:"PasswordHash"`
	Name         string `dynamodbav:"Name"`
	PhotoURL     string `dynamodbav:"PhotoURL,omitempty"`
	CreatedAt    string `dynamodbav:"CreatedAt"`
	UpdatedAt    string `dynamodbav:"UpdatedAt"`
}

// emailGuardItem reserves an email address for a single user. The profile
// put and the guard put go through one transaction so concurrent
// registrations with the same address cannot both succeed.
type emailGuardItem struct {
	PK         string `dynamodbav:"PK"` // EMAIL#<email>
	SK         string `dynamodbav:"SK"` // UNIQUE
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
}

// Save persists a user (create or update)
func (r *UserRepository) Save(ctx context.Context, user *entities.User) error {
	item := userItem{
		PK:           "USER#" + user.ID(),
		SK:           "PROFILE",
		EntityType:   "USER",
		UserID:       user.ID(),
		Email:        strings.ToLower(user.Email()),
		PasswordHash: user.PasswordHash(),
		Name:         user.Name(),
		PhotoURL:     user.PhotoURL(),
		CreatedAt:    user.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:    user.UpdatedAt().Format(time.RFC3339Nano),
	}

	transactItems, err := saveUserTransactItems(r.tableName, item)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{TransactItems: transactItems}
	if _, err := r.client.TransactWriteItems(ctx, input); err != nil {
		if isEmailTaken(err) {
			return pkgerrors.NewConflictError("email already registered")
		}
		r.logger.Error("Failed to save user", zap.Error(err), zap.String("userID", user.ID()))
		return pkgerrors.NewDatabaseError("save user", err)
	}
	return nil
}

// saveUserTransactItems builds the profile put plus the conditional guard
// put. The guard condition admits the item's current owner so repeated
// saves of the same user stay idempotent.
func saveUserTransactItems(tableName string, item userItem) ([]types.TransactWriteItem, error) {
	profile, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, err
	}

	guard, err := attributevalue.MarshalMap(emailGuardItem{
		PK:         "EMAIL#" + item.Email,
		SK:         "UNIQUE",
		EntityType: "EMAIL_GUARD",
		UserID:     item.UserID,
	})
	if err != nil {
		return nil, err
	}

	return []types.TransactWriteItem{
		{
			Put: &types.Put{
				TableName: aws.String(tableName),
				Item:      profile,
			},
		},
		{
			Put: &types.Put{
				TableName:           aws.String(tableName),
				Item:                guard,
				ConditionExpression: aws.String("attribute_not_exists(PK) OR UserID = :uid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":uid": &types.AttributeValueMemberS{Value: item.UserID},
				},
			},
		},
	}, nil
}

// isEmailTaken reports whether a transaction failed on the email guard's
// condition, meaning another user already holds the address.
func isEmailTaken(err error) bool {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return false
	}
	for _, reason := range canceled.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "USER#" + id},
			"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
		},
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return item.toEntity(), nil
}

// GetByEmail retrieves a user by email address via the email GSI
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("Email").Equal(expression.Value(strings.ToLower(email)))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.emailIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query user by email", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return item.toEntity(), nil
}

// Delete removes a user along with the email guard holding their address
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: "USER#" + id},
						"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
					},
				},
			},
			{
				Delete: &types.Delete{
					TableName: aws.String(r.tableName),
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: "EMAIL#" + strings.ToLower(user.Email())},
						"SK": &types.AttributeValueMemberS{Value: "UNIQUE"},
					},
				},
			},
		},
	}

	if _, err := r.client.TransactWriteItems(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete user", err)
	}
	return nil
}

func (item userItem) toEntity() *entities.User {
	return entities.ReconstructUser(
		item.UserID, item.Email, item.PasswordHash, item.Name, item.PhotoURL,
		parseTime(item.CreatedAt), parseTime(item.UpdatedAt),
	)
}
