package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dome-backend/application/ports"
	"dome-backend/domain/core/aggregates"
	"dome-backend/domain/core/entities"
	"dome-backend/domain/core/valueobjects"
	pkgerrors "dome-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ListRepository implements the Order State Store on DynamoDB. A whole list
// (metadata, item bodies, and the authoritative ordering) lives in a single
// item, so every write is atomic per list; optimistic concurrency is a
// conditional write on the Version attribute.
type ListRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewListRepository creates a new ListRepository
func NewListRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ListRepository {
	return &ListRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// listItem represents the DynamoDB item structure for a todo list
type listItem struct {
	PK         string              `dynamodbav:"PK"` // USER#<userID>
	SK         string              `dynamodbav:"SK"` // LIST#<listID>
	EntityType string              `dynamodbav:"EntityType"`
	ListID     string              `dynamodbav:"ListID"`
	UserID     string              `dynamodbav:"UserID"`
	Title      string              `dynamodbav:"Title"`
	Version    int                 `dynamodbav:"Version"`
	Ordering   []string            `dynamodbav:"Ordering"`
	Items      map[string]itemAttr `dynamodbav:"Items"`
	CreatedAt  string              `dynamodbav:"CreatedAt"`
	UpdatedAt  string              `dynamodbav:"UpdatedAt"`
}

type itemAttr struct {
	Title     string `dynamodbav:"Title"`
	Notes     string `dynamodbav:"Notes,omitempty"`
	Done      bool   `dynamodbav:"Done"`
	CreatedAt string `dynamodbav:"CreatedAt"`
	UpdatedAt string `dynamodbav:"UpdatedAt"`
}

// Save persists a new list; fails if the list already exists
func (r *ListRepository) Save(ctx context.Context, list *aggregates.TodoList) error {
	av, err := attributevalue.MarshalMap(itemOf(list))
	if err != nil {
		return fmt.Errorf("failed to marshal list: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewConflictError("list already exists")
		}
		r.logger.Error("Failed to save list",
			zap.Error(err),
			zap.String("listID", list.ID().String()),
		)
		return pkgerrors.NewDatabaseError("save list", err)
	}
	return nil
}

// Update writes the full list state back, conditional on the stored version
// still matching expectedVersion. A failed condition means a concurrent
// writer won the race.
func (r *ListRepository) Update(ctx context.Context, list *aggregates.TodoList, expectedVersion int) error {
	av, err := attributevalue.MarshalMap(itemOf(list))
	if err != nil {
		return fmt.Errorf("failed to marshal list: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(PK) AND Version = :expected"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expected": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expectedVersion)},
		},
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			r.logger.Debug("List CAS failed",
				zap.String("listID", list.ID().String()),
				zap.Int("expectedVersion", expectedVersion),
			)
			return pkgerrors.NewConflictError("list version mismatch")
		}
		r.logger.Error("Failed to update list",
			zap.Error(err),
			zap.String("listID", list.ID().String()),
		)
		return pkgerrors.NewDatabaseError("update list", err)
	}
	return nil
}

// GetByID retrieves a user's list by its ID
func (r *ListRepository) GetByID(ctx context.Context, userID string, id valueobjects.ListID) (*aggregates.TodoList, error) {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "USER#" + userID},
			"SK": &types.AttributeValueMemberS{Value: "LIST#" + id.String()},
		},
		ConsistentRead: aws.Bool(true),
	}

	result, err := r.client.GetItem(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get list", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("list")
	}

	var item listItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal list: %w", err)
	}
	return item.toAggregate()
}

// GetByUserID retrieves all lists owned by a user
func (r *ListRepository) GetByUserID(ctx context.Context, userID string) ([]*aggregates.TodoList, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(
			expression.Key("PK").Equal(expression.Value("USER#" + userID)).
				And(expression.Key("SK").BeginsWith("LIST#")),
		).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	lists := []*aggregates.TodoList{}
	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query lists", err)
		}
		for _, raw := range page.Items {
			var item listItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal list: %w", err)
			}
			list, err := item.toAggregate()
			if err != nil {
				return nil, err
			}
			lists = append(lists, list)
		}
	}
	return lists, nil
}

// Delete removes a list and its items
func (r *ListRepository) Delete(ctx context.Context, userID string, id valueobjects.ListID) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "USER#" + userID},
			"SK": &types.AttributeValueMemberS{Value: "LIST#" + id.String()},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewNotFoundError("list")
		}
		return pkgerrors.NewDatabaseError("delete list", err)
	}
	return nil
}

func itemOf(list *aggregates.TodoList) listItem {
	items := make(map[string]itemAttr, list.Len())
	for _, it := range list.Items() {
		items[it.ID().String()] = itemAttr{
			Title:     it.Title(),
			Notes:     it.Notes(),
			Done:      it.Done(),
			CreatedAt: it.CreatedAt().Format(time.RFC3339Nano),
			UpdatedAt: it.UpdatedAt().Format(time.RFC3339Nano),
		}
	}

	ordering := make([]string, 0, list.Len())
	for _, id := range list.Order() {
		ordering = append(ordering, id.String())
	}

	return listItem{
		PK:         "USER#" + list.UserID(),
		SK:         "LIST#" + list.ID().String(),
		EntityType: "LIST",
		ListID:     list.ID().String(),
		UserID:     list.UserID(),
		Title:      list.Title(),
		Version:    list.Version(),
		Ordering:   ordering,
		Items:      items,
		CreatedAt:  list.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:  list.UpdatedAt().Format(time.RFC3339Nano),
	}
}

func (item listItem) toAggregate() (*aggregates.TodoList, error) {
	listID, err := valueobjects.NewListIDFromString(item.ListID)
	if err != nil {
		return nil, pkgerrors.NewInternalError("corrupt list item").WithCause(err)
	}

	items := make([]*entities.Item, 0, len(item.Ordering))
	ordering := make([]valueobjects.ItemID, 0, len(item.Ordering))
	for _, raw := range item.Ordering {
		itemID, err := valueobjects.NewItemIDFromString(raw)
		if err != nil {
			return nil, pkgerrors.NewInternalError("corrupt item reference").WithCause(err)
		}
		attr, ok := item.Items[raw]
		if !ok {
			return nil, pkgerrors.NewInternalError("ordering references missing item " + raw)
		}
		items = append(items, entities.ReconstructItem(
			itemID, listID, item.UserID,
			attr.Title, attr.Notes, attr.Done,
			parseTime(attr.CreatedAt), parseTime(attr.UpdatedAt),
		))
		ordering = append(ordering, itemID)
	}

	return aggregates.ReconstructTodoList(
		listID, item.UserID, item.Title,
		items, ordering, item.Version,
		parseTime(item.CreatedAt), parseTime(item.UpdatedAt),
	)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
