package dispatchsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo-tracking/core"
	"github.com/trezcool/masomo-tracking/core/tracking"
)

const sinkDynamoDB = "dynamodb"

type putItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// eventItem is keyed by session_id (hash) and record_key (range): "<capturedAt>#<action>".
type eventItem struct {
	SessionID      string   `dynamodbav:"session_id"`
	RecordKey      string   `dynamodbav:"record_key"`
	Action         string   `dynamodbav:"action"`
	CapturedAt     string   `dynamodbav:"captured_at"`
	Latitude       *float64 `dynamodbav:"latitude,omitempty"`
	Longitude      *float64 `dynamodbav:"longitude,omitempty"`
	LocationSource string   `dynamodbav:"location_source"`
	FullAddress    *string  `dynamodbav:"full_address,omitempty"`
	Payload        string   `dynamodbav:"payload"`
}

func newEventItem(p tracking.Payload) (eventItem, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return eventItem{}, errors.Wrap(err, "encoding payload")
	}

	capturedAt := p.Device.CapturedAt
	if p.Event != nil {
		capturedAt = p.Event.CapturedAt
	}
	ts := capturedAt.UTC().Format(time.RFC3339Nano)
	return eventItem{
		SessionID:      p.Session.ID,
		RecordKey:      ts + "#" + p.Action(),
		Action:         p.Action(),
		CapturedAt:     ts,
		Latitude:       p.Location.Coordinates.Latitude,
		Longitude:      p.Location.Coordinates.Longitude,
		LocationSource: string(p.Location.Source),
		FullAddress:    p.Location.FullAddress,
		Payload:        string(body),
	}, nil
}

// DynamoDBDispatcher stores one item per payload.
type DynamoDBDispatcher struct {
	client    putItemAPI
	tableName string
}

var _ tracking.Dispatcher = (*DynamoDBDispatcher)(nil)

func NewDynamoDBDispatcher(ctx context.Context, conf core.DynamoDBConfig) (*DynamoDBDispatcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(conf.Region))
	if err != nil {
		return nil, errors.Wrap(err, "loading AWS config")
	}
	return newDynamoDBDispatcher(dynamodb.NewFromConfig(cfg), conf.Table), nil
}

func newDynamoDBDispatcher(client putItemAPI, tableName string) *DynamoDBDispatcher {
	return &DynamoDBDispatcher{client: client, tableName: tableName}
}

func (d *DynamoDBDispatcher) Send(ctx context.Context, p tracking.Payload) error {
	it, err := newEventItem(p)
	if err != nil {
		return tracking.NewDispatchError(sinkDynamoDB, 0, err)
	}
	item, err := attributevalue.MarshalMap(it)
	if err != nil {
		return tracking.NewDispatchError(sinkDynamoDB, 0, errors.Wrap(err, "marshalling item"))
	}

	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(d.tableName),
		Item:      item,
	})
	if err != nil {
		return tracking.NewDispatchError(sinkDynamoDB, 0, errors.Wrap(err, "putting item"))
	}
	return nil
}
