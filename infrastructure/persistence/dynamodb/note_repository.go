package dynamodb

import (
	"context"
	"errors"
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

// NoteRepository implements ports.NoteRepository using DynamoDB.
// Notes live in a single table under PK NOTE#<id> / SK METADATA.
type NoteRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewNoteRepository creates a new NoteRepository
func NewNoteRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.NoteRepository {
	return &NoteRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// noteItem represents the DynamoDB item structure for a note
type noteItem struct {
	PK              string   `dynamodbav:"PK"`
	SK              string   `dynamodbav:"SK"`
	EntityType      string   `dynamodbav:"EntityType"`
	NoteID          string   `dynamodbav:"NoteID"`
	Title           string   `dynamodbav:"Title"`
	Content         string   `dynamodbav:"Content"`
	PositionX       float64  `dynamodbav:"PositionX"`
	PositionY       float64  `dynamodbav:"PositionY"`
	BackgroundColor string   `dynamodbav:"BackgroundColor"`
	FontSize        int      `dynamodbav:"FontSize"`
	ImageURL        string   `dynamodbav:"ImageURL"`
	Tags            []string `dynamodbav:"Tags"`
	IsPinned        bool     `dynamodbav:"IsPinned"`
	CreatedAt       string   `dynamodbav:"CreatedAt"`
	UpdatedAt       string   `dynamodbav:"UpdatedAt"`
}

func notePK(id string) string {
	return fmt.Sprintf("NOTE#%s", id)
}

func toNoteItem(note *notes.Note) noteItem {
	return noteItem{
		PK:              notePK(note.ID),
		SK:              "METADATA",
		EntityType:      "NOTE",
		NoteID:          note.ID,
		Title:           note.Title,
		Content:         note.Content,
		PositionX:       note.Position.X,
		PositionY:       note.Position.Y,
		BackgroundColor: note.Styling.BackgroundColor,
		FontSize:        note.Styling.FontSize,
		ImageURL:        note.ImageURL,
		Tags:            note.Tags,
		IsPinned:        note.IsPinned,
		CreatedAt:       utils.FormatTimestamp(note.CreatedAt),
		UpdatedAt:       utils.FormatTimestamp(note.UpdatedAt),
	}
}

func fromNoteItem(item noteItem) (*notes.Note, error) {
	createdAt, err := utils.ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid CreatedAt on note %s: %w", item.NoteID, err)
	}
	updatedAt, err := utils.ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid UpdatedAt on note %s: %w", item.NoteID, err)
	}

	tags := item.Tags
	if tags == nil {
		tags = []string{}
	}

	return &notes.Note{
		ID:      item.NoteID,
		Title:   item.Title,
		Content: item.Content,
		Position: notes.Position{
			X: item.PositionX,
			Y: item.PositionY,
		},
		Styling: notes.Styling{
			BackgroundColor: item.BackgroundColor,
			FontSize:        item.FontSize,
		},
		ImageURL:  item.ImageURL,
		Tags:      tags,
		IsPinned:  item.IsPinned,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// Save persists a note (create or full overwrite)
func (r *NoteRepository) Save(ctx context.Context, note *notes.Note) error {
	av, err := attributevalue.MarshalMap(toNoteItem(note))
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal note", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	})
	if err != nil {
		r.logger.Error("Failed to save note to DynamoDB",
			zap.Error(err),
			zap.String("noteID", note.ID),
		)
		return pkgerrors.NewDatabaseError("save note", err)
	}

	return nil
}

// GetByID retrieves a note by its ID
func (r *NoteRepository) GetByID(ctx context.Context, id string) (*notes.Note, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: notePK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get note", err)
	}
	if out.Item == nil {
		return nil, pkgerrors.NewNotFoundError("note")
	}

	var item noteItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal note", err)
	}

	return fromNoteItem(item)
}

// Delete removes a note
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	out, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: notePK(id)},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete note", err)
	}
	if len(out.Attributes) == 0 {
		return pkgerrors.NewNotFoundError("note")
	}

	return nil
}

// List retrieves every note
func (r *NoteRepository) List(ctx context.Context) ([]*notes.Note, error) {
	filter := expression.Name("EntityType").Equal(expression.Value("NOTE"))
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("build note filter", err)
	}

	var result []*notes.Note
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
			return nil, pkgerrors.NewDatabaseError("scan notes", err)
		}

		for _, raw := range out.Items {
			var item noteItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, pkgerrors.NewDatabaseError("unmarshal note", err)
			}
			note, err := fromNoteItem(item)
			if err != nil {
				// Skip corrupt rows rather than failing the whole listing
				r.logger.Warn("Skipping malformed note item", zap.Error(err))
				continue
			}
			result = append(result, note)
		}

		if out.LastEvaluatedKey == nil {
			break
		}
		lastKey = out.LastEvaluatedKey
	}

	return result, nil
}

// isConditionalCheckFailed reports whether a DynamoDB error is a failed
// condition expression.
func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

var _ ports.NoteRepository = (*NoteRepository)(nil)
