package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"noteflow-backend/application/ports"
	"noteflow-backend/domain/notes"
	pkgerrors "noteflow-backend/pkg/errors"
	"noteflow-backend/pkg/utils"
)

// ConnectionRepository implements ports.ConnectionRepository using DynamoDB.
// Connections live in the same table as notes under PK CONNECTION#<id>.
type ConnectionRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewConnectionRepository creates a new ConnectionRepository
func NewConnectionRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.ConnectionRepository {
	return &ConnectionRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// connectionItem represents the DynamoDB item structure for a connection
type connectionItem struct {
	PK           string  `dynamodbav:"PK"`
	SK           string  `dynamodbav:"SK"`
	EntityType   string  `dynamodbav:"EntityType"`
	ConnectionID string  `dynamodbav:"ConnectionID"`
	Source       string  `dynamodbav:"Source"`
	Target       string  `dynamodbav:"Target"`
	SourceHandle *string `dynamodbav:"SourceHandle"`
	TargetHandle *string `dynamodbav:"TargetHandle"`
	Label        string  `dynamodbav:"Label"`
	CreatedAt    string  `dynamodbav:"CreatedAt"`
}

func connectionPK(id string) string {
	return fmt.Sprintf("CONNECTION#%s", id)
}

func toConnectionItem(conn *notes.Connection) connectionItem {
	return connectionItem{
		PK:           connectionPK(conn.ID),
		SK:           "METADATA",
		EntityType:   "CONNECTION",
		ConnectionID: conn.ID,
		Source:       conn.Source,
		Target:       conn.Target,
		SourceHandle: conn.SourceHandle,
		TargetHandle: conn.TargetHandle,
		Label:        conn.Label,
		CreatedAt:    utils.FormatTimestamp(conn.CreatedAt),
	}
}

func fromConnectionItem(item connectionItem) (*notes.Connection, error) {
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on connection %s: %w", item.ConnectionID, err)
	}

	return &notes.Connection{
		ID:           item.ConnectionID,
		Source:       item.Source,
		Target:       item.Target,
		SourceHandle: item.SourceHandle,
		TargetHandle: item.TargetHandle,
		Label:        item.Label,
		CreatedAt:    createdAt,
	}, nil
}

// Save persists a connection
func (r *ConnectionRepository) Save(ctx context.Context, conn *notes.Connection) error {
	av, err := attributevalue.MarshalMap(toConnectionItem(conn))
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal connection", err)
	}

	// Connections are immutable, so a second write for the same ID is a bug
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.NewValidationError("connection already exists")
		}
		r.logger.Error("Failed to save connection to DynamoDB",
			zap.Error(err),
			zap.String("connectionID", conn.ID),
		)
		return pkgerrors.NewDatabaseError("save connection", err)
	}

	return nil
}

// GetByID retrieves a connection by its ID
func (r *ConnectionRepository) GetByID(ctx context.Context, id string) (*notes.Connection, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: connectionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get connection", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("connection")
	}

	var item connectionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal connection", err)
	}

	return fromConnectionItem(item)
}

// Delete removes a connection
func (r *ConnectionRepository) Delete(ctx context.Context, id string) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: connectionPK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete connection", err)
	}
	if len(out.Attributes) == 0 {
		return pkgerrors.NewNotFoundError("connection")
	}

	return nil
}

// List retrieves every connection
func (r *ConnectionRepository) List(ctx context.Context) ([]*notes.Connection, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("CONNECTION"))
	return r.scanConnections(ctx, filter)
}

// DeleteByNoteID removes every connection referencing the note on either
// end. The deletes are issued one item at a time; a crash partway through
// leaves the remainder orphaned.
func (r *ConnectionRepository) DeleteByNoteID(ctx context.Context, noteID string) ([]*notes.Connection, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("CONNECTION")).
		And(expression.Name("Source").Equal(expression.Value(noteID)).
			Or(expression.Name("Target").Equal(expression.Value(noteID))))

	referencing, err := r.scanConnections(ctx, filter)
	if err != nil {
		return nil, err
	}

	removed := make([]*notes.Connection, 0, len(referencing))
	for _, conn := range referencing {
		if err := r.Delete(ctx, conn.ID); err != nil {
			if pkgerrors.IsNotFound(err) {
				// Already gone, a concurrent delete beat us to it
				continue
			}
			return removed, err
		}
		removed = append(removed, conn)
	}

	return removed, nil
}

// scanConnections scans the table for connection items matching the filter
func (r *ConnectionRepository) scanConnections(ctx context.Context, filter expression.ConditionBuilder) ([]*notes.Connection, error) {
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build connection filter", err)
	}

	var result []*notes.Connection
	var lastKey map[string]types.AttributeValue

	for {
		out, err := r.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:                 aws.String(r.tableName),
			FilterExpression:          expr.Filter(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         lastKey,
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan connections", err)
		}

		for _, raw := range out.Items {
			var item connectionItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal connection", err)
			}
			conn, err := fromConnectionItem(item)
			if err != nil {
				r.logger.Warn("Skipping malformed connection item", zap.Error(err))
				continue
			}
			result = append(result, conn)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return result, nil
}

var _ ports.ConnectionRepository = (*ConnectionRepository)(nil)
