package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/ortizcarlos/agentic-customer-support/internal/domain/order"
)

// GSI names. Each mirrors one of the embedded store's lookup indexes, with
// created_at as the range key so "most recent first" comes from the index's
// native sort order.
const (
	customerIDIndex   = "customer_id_index"
	customerNameIndex = "customer_name_index"
	statusIndex       = "status_index"
)

// DynamoDBAPI is the narrow client surface the driver depends on. Production
// code passes *dynamodb.Client; tests pass a fake.
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoOrderStore implements OrderStore against a DynamoDB table keyed by
// order_id. Reads through the GSIs are eventually consistent with the
// primary write; that staleness window is documented contract behavior, not
// something the driver papers over. Callers needing read-your-write
// consistency must read via GetOrder.
type DynamoOrderStore struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoOrderStore(client DynamoDBAPI, tableName string) *DynamoOrderStore {
	return &DynamoOrderStore{client: client, tableName: tableName}
}

// dynamoDecimal carries money across the DynamoDB boundary as a Number
// attribute, string in both directions. Converting through float64 would
// drift at the cent level, which is why this wrapper exists.
type dynamoDecimal struct {
	decimal.Decimal
}

func (d dynamoDecimal) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberN{Value: d.Decimal.String()}, nil
}

func (d *dynamoDecimal) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	n, ok := av.(*types.AttributeValueMemberN)
	if !ok {
		return fmt.Errorf("money attribute must be a Number, got %T", av)
	}
	dec, err := decimal.NewFromString(n.Value)
	if err != nil {
		return err
	}
	d.Decimal = dec
	return nil
}

// dynamoLineItem is the item structure nested under "items".
type dynamoLineItem struct {
	ItemName  string        `dynamodbav:"item_name"`
	Quantity  int           `dynamodbav:"quantity"`
	UnitPrice dynamoDecimal `dynamodbav:"unit_price"`
	Subtotal  dynamoDecimal `dynamodbav:"subtotal"`
}

// dynamoOrder is the DynamoDB item structure. Timestamps are fixed-width
// RFC3339 UTC strings so the GSI range keys sort chronologically; metadata
// is an opaque JSON blob.
type dynamoOrder struct {
	OrderID            string           `dynamodbav:"order_id"`
	CustomerID         string           `dynamodbav:"customer_id"`
	CustomerName       string           `dynamodbav:"customer_name"`
	Items              []dynamoLineItem `dynamodbav:"items"`
	TotalPrice         dynamoDecimal    `dynamodbav:"total_price"`
	Status             string           `dynamodbav:"status"`
	CreatedAt          string           `dynamodbav:"created_at"`
	UpdatedAt          string           `dynamodbav:"updated_at"`
	EstimatedReadyTime string           `dynamodbav:"estimated_ready_time,omitempty"`
	ConversationID     string           `dynamodbav:"conversation_id,omitempty"`
	Metadata           string           `dynamodbav:"metadata,omitempty"`
}

func (s *DynamoOrderStore) Close() error { return nil }

func (s *DynamoOrderStore) CreateOrder(ctx context.Context, o *order.Order) error {
	if err := prepareForCreate(o); err != nil {
		return err
	}

	record, err := toDynamoOrder(o)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidOrder, err)
	}
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("dynamo: marshal order %q: %w", o.OrderID, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	})
	if isConditionalCheckFailed(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("dynamo: put order %q: %w", o.OrderID, err)
	}
	return nil
}

func (s *DynamoOrderStore) GetOrder(ctx context.Context, orderID string) (*order.Order, error) {
	// Primary-key read with ConsistentRead: this is the strongly consistent
	// path callers fall back to inside the GSI staleness window.
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            orderKey(orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get order %q: %w", orderID, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return unmarshalOrder(result.Item)
}

func (s *DynamoOrderStore) GetCustomerOrders(ctx context.Context, customerName string, opts QueryOptions) ([]order.Order, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(customerNameIndex),
		KeyConditionExpression: aws.String("customer_name = :cn"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":cn": &types.AttributeValueMemberS{Value: customerName},
		},
		ScanIndexForward: aws.Bool(false),
	}

	if opts.Status != "" {
		// DynamoDB applies Limit before FilterExpression, so a limited
		// filtered query must paginate fully and cap afterwards, or the
		// result would diverge from the embedded driver.
		input.FilterExpression = aws.String("#status = :status")
		input.ExpressionAttributeNames = map[string]string{"#status": "status"}
		input.ExpressionAttributeValues[":status"] = &types.AttributeValueMemberS{Value: string(opts.Status)}
	} else if opts.Limit > 0 {
		input.Limit = aws.Int32(int32(opts.Limit))
	}

	orders, err := s.queryOrders(ctx, input, opts.Limit)
	if err != nil {
		return nil, fmt.Errorf("dynamo: customer orders for %q: %w", customerName, err)
	}
	return orders, nil
}

func (s *DynamoOrderStore) GetCustomerLastOrder(ctx context.Context, customerID string) (*order.Order, error) {
	// A bare Limit 1 could hand back the wrong member of a created_at tie
	// (the index sorts on created_at only); queryOrders extends through the
	// tie and re-sorts before capping.
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(customerIDIndex),
		KeyConditionExpression: aws.String("customer_id = :ci"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ci": &types.AttributeValueMemberS{Value: customerID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	}

	orders, err := s.queryOrders(ctx, input, 1)
	if err != nil {
		return nil, fmt.Errorf("dynamo: last order for customer %q: %w", customerID, err)
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return &orders[0], nil
}

func (s *DynamoOrderStore) UpdateOrderStatus(ctx context.Context, orderID string, status order.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidOrder, order.ErrUndefinedStatus, status)
	}

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(orderID),
		UpdateExpression:    aws.String("SET #status = :status, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(order_id)"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":     &types.AttributeValueMemberS{Value: string(status)},
			":updated_at": &types.AttributeValueMemberS{Value: formatStoredTime(time.Now())},
		},
	})
	if isConditionalCheckFailed(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: update status of %q: %w", orderID, err)
	}
	return nil
}

func (s *DynamoOrderStore) UpdateOrderReadyTime(ctx context.Context, orderID string, readyAt time.Time) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(orderID),
		UpdateExpression:    aws.String("SET estimated_ready_time = :ert, updated_at = :updated_at"),
		ConditionExpression: aws.String("attribute_exists(order_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":ert":        &types.AttributeValueMemberS{Value: formatStoredTime(readyAt)},
			":updated_at": &types.AttributeValueMemberS{Value: formatStoredTime(time.Now())},
		},
	})
	if isConditionalCheckFailed(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: update ready time of %q: %w", orderID, err)
	}
	return nil
}

func (s *DynamoOrderStore) GetOrdersByStatus(ctx context.Context, status order.Status, limit int) ([]order.Order, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(statusIndex),
		KeyConditionExpression: aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(status)},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	orders, err := s.queryOrders(ctx, input, limit)
	if err != nil {
		return nil, fmt.Errorf("dynamo: orders by status %q: %w", status, err)
	}
	return orders, nil
}

func (s *DynamoOrderStore) DeleteOrder(ctx context.Context, orderID string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.tableName),
		Key:                 orderKey(orderID),
		ConditionExpression: aws.String("attribute_exists(order_id)"),
	})
	if isConditionalCheckFailed(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("dynamo: delete order %q: %w", orderID, err)
	}
	return nil
}

func (s *DynamoOrderStore) ClearAllOrders(ctx context.Context) (int, error) {
	count := 0
	var startKey map[string]types.AttributeValue
	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:            aws.String(s.tableName),
			ProjectionExpression: aws.String("order_id"),
			ExclusiveStartKey:    startKey,
		})
		if err != nil {
			return count, fmt.Errorf("dynamo: scan for clear: %w", err)
		}
		for _, item := range result.Items {
			_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
				TableName: aws.String(s.tableName),
				Key:       map[string]types.AttributeValue{"order_id": item["order_id"]},
			})
			if err != nil {
				return count, fmt.Errorf("dynamo: delete during clear: %w", err)
			}
			count++
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	return count, nil
}

// ListOrders paginates a full table scan. This is explicitly the expensive
// path on this backend; statistics over high-volume tables want a
// pre-aggregated counter scheme instead, which is out of scope here.
func (s *DynamoOrderStore) ListOrders(ctx context.Context) ([]order.Order, error) {
	var orders []order.Order
	var startKey map[string]types.AttributeValue
	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("dynamo: scan orders: %w", err)
		}
		for _, item := range result.Items {
			o, err := unmarshalOrder(item)
			if err != nil {
				return nil, err
			}
			orders = append(orders, *o)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}
	sortNewestFirst(orders)
	return orders, nil
}

func (s *DynamoOrderStore) FormatOrderSummary(ctx context.Context, orderID string) (string, error) {
	o, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return "", err
	}
	return o.Summary(), nil
}

// queryOrders paginates an index query, re-sorts the hits in memory (the
// GSI range key cannot express the order_id tie-break) and applies the limit
// last.
func (s *DynamoOrderStore) queryOrders(ctx context.Context, input *dynamodb.QueryInput, limit int) ([]order.Order, error) {
	var orders []order.Order
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, item := range result.Items {
			o, err := unmarshalOrder(item)
			if err != nil {
				return nil, err
			}
			orders = append(orders, *o)
		}
		if result.LastEvaluatedKey == nil {
			break
		}
		if input.FilterExpression == nil && limit > 0 && len(orders) >= limit {
			// Enough items, but the cut may fall inside a created_at tie the
			// index cannot break; pull the rest of that tie before capping.
			if err := s.collectBoundaryTies(ctx, input, result.LastEvaluatedKey, &orders); err != nil {
				return nil, err
			}
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	sortNewestFirst(orders)
	return capOrders(orders, limit), nil
}

// collectBoundaryTies extends a limit-satisfied query through any remaining
// orders that share the oldest collected created_at. The index sorts on
// created_at only, so the ascending-order_id winner of a tie at the cut can
// sit just past a pushed-down Limit.
func (s *DynamoOrderStore) collectBoundaryTies(ctx context.Context, input *dynamodb.QueryInput, startKey map[string]types.AttributeValue, orders *[]order.Order) error {
	boundary := (*orders)[len(*orders)-1].CreatedAt
	for {
		input.ExclusiveStartKey = startKey
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return err
		}
		for _, item := range result.Items {
			o, err := unmarshalOrder(item)
			if err != nil {
				return err
			}
			// Index order is descending: the first older item ends the tie.
			if !o.CreatedAt.Equal(boundary) {
				return nil
			}
			*orders = append(*orders, *o)
		}
		if result.LastEvaluatedKey == nil {
			return nil
		}
		startKey = result.LastEvaluatedKey
	}
}

func orderKey(orderID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"order_id": &types.AttributeValueMemberS{Value: orderID},
	}
}

func isConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func toDynamoOrder(o *order.Order) (*dynamoOrder, error) {
	record := &dynamoOrder{
		OrderID:        o.OrderID,
		CustomerID:     o.CustomerID,
		CustomerName:   o.CustomerName,
		TotalPrice:     dynamoDecimal{o.TotalPrice},
		Status:         string(o.Status),
		CreatedAt:      formatStoredTime(o.CreatedAt),
		UpdatedAt:      formatStoredTime(o.UpdatedAt),
		ConversationID: o.ConversationID,
	}
	if o.EstimatedReadyTime != nil {
		record.EstimatedReadyTime = formatStoredTime(*o.EstimatedReadyTime)
	}
	for _, item := range o.Items {
		record.Items = append(record.Items, dynamoLineItem{
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: dynamoDecimal{item.UnitPrice},
			Subtotal:  dynamoDecimal{item.Subtotal},
		})
	}
	if len(o.Metadata) > 0 {
		data, err := json.Marshal(o.Metadata)
		if err != nil {
			return nil, err
		}
		record.Metadata = string(data)
	}
	return record, nil
}

func unmarshalOrder(item map[string]types.AttributeValue) (*order.Order, error) {
	var record dynamoOrder
	if err := attributevalue.UnmarshalMap(item, &record); err != nil {
		return nil, fmt.Errorf("dynamo: unmarshal order: %w", err)
	}

	o := &order.Order{
		OrderID:        record.OrderID,
		CustomerID:     record.CustomerID,
		CustomerName:   record.CustomerName,
		TotalPrice:     record.TotalPrice.Decimal,
		Status:         order.Status(record.Status),
		ConversationID: record.ConversationID,
	}

	var err error
	if o.CreatedAt, err = parseStoredTime(record.CreatedAt); err != nil {
		return nil, fmt.Errorf("dynamo: created_at of %q: %w", record.OrderID, err)
	}
	if o.UpdatedAt, err = parseStoredTime(record.UpdatedAt); err != nil {
		return nil, fmt.Errorf("dynamo: updated_at of %q: %w", record.OrderID, err)
	}
	if record.EstimatedReadyTime != "" {
		t, err := parseStoredTime(record.EstimatedReadyTime)
		if err != nil {
			return nil, fmt.Errorf("dynamo: estimated_ready_time of %q: %w", record.OrderID, err)
		}
		o.EstimatedReadyTime = &t
	}
	for _, item := range record.Items {
		o.Items = append(o.Items, order.LineItem{
			ItemName:  item.ItemName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.Decimal,
			Subtotal:  item.Subtotal.Decimal,
		})
	}
	if record.Metadata != "" {
		if err := json.Unmarshal([]byte(record.Metadata), &o.Metadata); err != nil {
			return nil, fmt.Errorf("dynamo: metadata of %q: %w", record.OrderID, err)
		}
	}
	return o, nil
}
