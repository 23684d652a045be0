package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/guangtouwangba/weaver-canvas/application/ports"
	"github.com/guangtouwangba/weaver-canvas/domain/core/aggregates"
	"github.com/guangtouwangba/weaver-canvas/domain/core/entities"
	apperrors "github.com/guangtouwangba/weaver-canvas/pkg/errors"
	"github.com/guangtouwangba/weaver-canvas/pkg/observability"
)

// CanvasRepository persists each project's canvas as a single DynamoDB item
// guarded by a version condition. Every save replaces the whole document, so
// concurrent writers are serialized by the conditional check rather than by
// item-level merges.
type CanvasRepository struct {
	client    *dynamodb.Client
	tableName string
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewCanvasRepository creates a new CanvasRepository
func NewCanvasRepository(client *dynamodb.Client, tableName string, metrics *observability.Metrics, logger *zap.Logger) ports.CanvasRepository {
	return &CanvasRepository{
		client:    client,
		tableName: tableName,
		metrics:   metrics,
		logger:    logger,
	}
}

// canvasItem is the DynamoDB document for one project's canvas
type canvasItem struct {
	PK                string                     `dynamodbav:"PK"`
	SK                string                     `dynamodbav:"SK"`
	EntityType        string                     `dynamodbav:"EntityType"`
	ProjectID         string                     `dynamodbav:"ProjectID"`
	Nodes             []*entities.CanvasNode     `dynamodbav:"Nodes"`
	Edges             []*entities.CanvasEdge     `dynamodbav:"Edges"`
	Sections          []*entities.CanvasSection  `dynamodbav:"Sections"`
	Viewport          aggregates.Viewport        `dynamodbav:"Viewport"`
	CurrentGeneration int                        `dynamodbav:"CurrentGeneration"`
	Version           int                        `dynamodbav:"Version"`
	UpdatedAt         string                     `dynamodbav:"UpdatedAt"`
}

func canvasKey(projectID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("PROJECT#%s", projectID)},
		"SK": &types.AttributeValueMemberS{Value: "CANVAS"},
	}
}

// FindByProject loads the canvas for a project. A project with no canvas yet
// returns (nil, nil) so callers can lazily create one.
func (r *CanvasRepository) FindByProject(ctx context.Context, projectID string) (*aggregates.Canvas, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            canvasKey(projectID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to load canvas", err)
	}
	if result.Item == nil {
		return nil, nil
	}

	var item canvasItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, apperrors.NewDatabaseError("failed to unmarshal canvas item", err)
	}

	updatedAt, err := time.Parse(time.RFC3339, item.UpdatedAt)
	if err != nil {
		r.logger.Warn("Canvas item has unparseable UpdatedAt",
			zap.String("projectID", projectID),
			zap.String("updatedAt", item.UpdatedAt),
		)
		updatedAt = time.Now()
	}

	canvas := aggregates.ReconstructCanvas(
		item.ProjectID,
		item.Nodes,
		item.Edges,
		item.Sections,
		item.Viewport,
		item.CurrentGeneration,
		item.Version,
		updatedAt,
	)
	return canvas, nil
}

// SaveWithVersion writes the canvas only if the stored version still equals
// expectedVersion. expectedVersion 0 asserts the item does not yet exist. A
// losing writer gets a conflict error and is expected to reload and retry.
func (r *CanvasRepository) SaveWithVersion(ctx context.Context, canvas *aggregates.Canvas, expectedVersion int) (*aggregates.Canvas, error) {
	now := time.Now()
	item := canvasItem{
		PK:                fmt.Sprintf("PROJECT#%s", canvas.ProjectID()),
		SK:                "CANVAS",
		EntityType:        "CANVAS",
		ProjectID:         canvas.ProjectID(),
		Nodes:             canvas.Nodes(),
		Edges:             canvas.Edges(),
		Sections:          canvas.Sections(),
		Viewport:          canvas.Viewport(),
		CurrentGeneration: canvas.CurrentGeneration(),
		Version:           expectedVersion + 1,
		UpdatedAt:         now.Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return nil, apperrors.NewDatabaseError("failed to marshal canvas item", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}

	if expectedVersion == 0 {
		input.ConditionExpression = aws.String("attribute_not_exists(PK)")
	} else {
		condition := expression.Equal(expression.Name("Version"), expression.Value(expectedVersion))
		expr, err := expression.NewBuilder().WithCondition(condition).Build()
		if err != nil {
			return nil, apperrors.NewDatabaseError("failed to build condition expression", err)
		}
		input.ConditionExpression = expr.Condition()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			r.metrics.RecordSaveConflict(ctx)
			r.logger.Info("Canvas save lost the version race",
				zap.String("projectID", canvas.ProjectID()),
				zap.Int("expectedVersion", expectedVersion),
			)
			return nil, apperrors.NewConflictError(
				fmt.Sprintf("canvas for project %s changed since version %d", canvas.ProjectID(), expectedVersion))
		}
		return nil, apperrors.NewDatabaseError("failed to save canvas", err)
	}

	canvas.MarkSaved(expectedVersion+1, now)
	return canvas, nil
}
