package cloud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ANIKETSHETTY47/energy-performance-engine/internal/domain"
)

// DynamoAPI is the subset of the DynamoDB client the model store uses.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// DynamoModelStore keeps baseline model versions in a table keyed by
// seriesKey (entity|source) and version.
type DynamoModelStore struct {
	svc   DynamoAPI
	table string
}

func NewDynamoModelStore(ctx context.Context, region, table string) (*DynamoModelStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return NewDynamoModelStoreWithClient(dynamodb.NewFromConfig(cfg), table), nil
}

func NewDynamoModelStoreWithClient(svc DynamoAPI, table string) *DynamoModelStore {
	return &DynamoModelStore{svc: svc, table: table}
}

// modelItem is the DynamoDB shape of a baseline model version.
type modelItem struct {
	SeriesKey      string                 `dynamodbav:"seriesKey"`
	Version        int                    `dynamodbav:"version"`
	ModelID        string                 `dynamodbav:"modelId"`
	EntityID       string                 `dynamodbav:"entityId"`
	EnergySource   string                 `dynamodbav:"energySource"`
	TrainingStart  int64                  `dynamodbav:"trainingStart"`
	TrainingEnd    int64                  `dynamodbav:"trainingEnd"`
	DriverNames    []string               `dynamodbav:"driverNames"`
	Coefficients   []float64              `dynamodbav:"coefficients"`
	Intercept      float64                `dynamodbav:"intercept"`
	RSquared       float64                `dynamodbav:"rSquared"`
	CVRSquared     *float64               `dynamodbav:"cvRSquared,omitempty"`
	SampleCount    int                    `dynamodbav:"sampleCount"`
	SelectionMode  string                 `dynamodbav:"selectionMode"`
	SelectionSteps []domain.SelectionStep `dynamodbav:"selectionSteps,omitempty"`
	TrainedAt      int64                  `dynamodbav:"trainedAt"`
}

func seriesKey(entityID, energySource string) string { return entityID + "|" + energySource }

func toItem(m *domain.BaselineModel) modelItem {
	return modelItem{
		SeriesKey:      seriesKey(m.EntityID, m.EnergySource),
		Version:        m.Version,
		ModelID:        m.ID,
		EntityID:       m.EntityID,
		EnergySource:   m.EnergySource,
		TrainingStart:  m.TrainingStart.Unix(),
		TrainingEnd:    m.TrainingEnd.Unix(),
		DriverNames:    m.DriverNames,
		Coefficients:   m.Coefficients,
		Intercept:      m.Intercept,
		RSquared:       m.RSquared,
		CVRSquared:     m.CVRSquared,
		SampleCount:    m.SampleCount,
		SelectionMode:  string(m.SelectionMode),
		SelectionSteps: m.SelectionSteps,
		TrainedAt:      m.TrainedAt.Unix(),
	}
}

func (it modelItem) model() domain.BaselineModel {
	return domain.BaselineModel{
		ID:             it.ModelID,
		EntityID:       it.EntityID,
		EnergySource:   it.EnergySource,
		Version:        it.Version,
		TrainingStart:  time.Unix(it.TrainingStart, 0).UTC(),
		TrainingEnd:    time.Unix(it.TrainingEnd, 0).UTC(),
		DriverNames:    it.DriverNames,
		Coefficients:   it.Coefficients,
		Intercept:      it.Intercept,
		RSquared:       it.RSquared,
		CVRSquared:     it.CVRSquared,
		SampleCount:    it.SampleCount,
		SelectionMode:  domain.SelectionMode(it.SelectionMode),
		SelectionSteps: it.SelectionSteps,
		TrainedAt:      time.Unix(it.TrainedAt, 0).UTC(),
	}
}

// SaveModel writes the next version. The put is conditional on the version
// not existing so a concurrent writer cannot overwrite it.
func (s *DynamoModelStore) SaveModel(ctx context.Context, m *domain.BaselineModel) error {
	latest, err := s.latest(ctx, m.EntityID, m.EnergySource)
	switch {
	case errors.Is(err, domain.ErrModelNotFound):
		m.Version = 1
	case err != nil:
		return err
	default:
		m.Version = latest.Version + 1
	}

	item, err := attributevalue.MarshalMap(toItem(m))
	if err != nil {
		return fmt.Errorf("failed to marshal model: %w", err)
	}
	_, err = s.svc.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		return fmt.Errorf("failed to put model in DynamoDB: %w", err)
	}
	return nil
}

func (s *DynamoModelStore) LoadLatestModel(ctx context.Context, entityID, energySource string) (*domain.BaselineModel, error) {
	return s.latest(ctx, entityID, energySource)
}

func (s *DynamoModelStore) latest(ctx context.Context, entityID, energySource string) (*domain.BaselineModel, error) {
	items, err := s.query(ctx, entityID, energySource, false, aws.Int32(1))
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, domain.ErrModelNotFound
	}
	m := items[0].model()
	return &m, nil
}

func (s *DynamoModelStore) ListModelVersions(ctx context.Context, entityID, energySource string) ([]domain.BaselineModel, error) {
	items, err := s.query(ctx, entityID, energySource, true, nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BaselineModel, len(items))
	for i, it := range items {
		out[i] = it.model()
	}
	return out, nil
}

func (s *DynamoModelStore) query(ctx context.Context, entityID, energySource string, ascending bool, limit *int32) ([]modelItem, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("seriesKey = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":sk": &types.AttributeValueMemberS{Value: seriesKey(entityID, energySource)},
		},
		ScanIndexForward: aws.Bool(ascending),
		Limit:            limit,
	}

	var out []modelItem
	for {
		result, err := s.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		var page []modelItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal models: %w", err)
		}
		out = append(out, page...)
		if limit != nil || len(result.LastEvaluatedKey) == 0 {
			return out, nil
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
}
