package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"podcast-agent/internal/domain"
	"podcast-agent/internal/tokenizer"
)

const (
	skPrefixTurn = "TURN#"
	skMeta       = "META#"
	// DynamoDB caps a transaction at 100 actions.
	maxTransactItems = 100
)

// ErrNotFound is returned when no episode exists for an ID.
var ErrNotFound = errors.New("repository: episode not found")

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Client stores episodes in a single table: one item per turn and one
// metadata item per episode.
type Client struct {
	api       dynamodbAPI
	tableName string
	tokens    tokenizer.Counter
	ttl       time.Duration
	now       func() time.Time
}

type Option func(*Client)

// WithTokenCounter sets how the tokens attribute of turn items is computed.
func WithTokenCounter(c tokenizer.Counter) Option {
	return func(cl *Client) {
		if c != nil {
			cl.tokens = c
		}
	}
}

// WithTTL expires items d after they are written. Zero keeps them forever.
func WithTTL(d time.Duration) Option {
	return func(cl *Client) {
		cl.ttl = d
	}
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	c := &Client{
		api:       api,
		tableName: tableName,
		tokens:    tokenizer.Estimator{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// episodePK returns the DynamoDB partition key for an episode.
func episodePK(episodeID string) string {
	return "EPISODE#" + episodeID
}

// turnSK keeps turns in dialogue order under lexicographic sort.
func turnSK(index int) string {
	return fmt.Sprintf("%s%04d", skPrefixTurn, index)
}

func (c *Client) ttlValue() int64 {
	if c.ttl <= 0 {
		return 0
	}
	return c.now().Add(c.ttl).Unix()
}

// SaveEpisode writes every turn and then the metadata item. Turns are written
// in transactions of at most 100 items; the metadata item is written last so
// an episode is only visible once all its turns exist.
func (c *Client) SaveEpisode(ctx context.Context, meta domain.EpisodeMetadata, turns []domain.TurnRecord) error {
	if strings.TrimSpace(meta.EpisodeID) == "" {
		return errors.New("repository: SaveEpisode: episode ID is required")
	}
	ttl := c.ttlValue()

	for start := 0; start < len(turns); start += maxTransactItems {
		end := min(start+maxTransactItems, len(turns))
		items := make([]types.TransactWriteItem, 0, end-start)
		for i := start; i < end; i++ {
			items = append(items, types.TransactWriteItem{
				Put: &types.Put{
					TableName:           aws.String(c.tableName),
					Item:                c.turnItem(meta.EpisodeID, i, turns[i], ttl),
					ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
				},
			})
		}
		if _, err := c.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
			return fmt.Errorf("repository: SaveEpisode turns %d-%d: %w", start, end-1, err)
		}
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item:      metaItem(meta, len(turns), ttl),
	})
	if err != nil {
		return fmt.Errorf("repository: SaveEpisode meta: %w", err)
	}
	return nil
}

// GetEpisode loads the metadata and all turns of an episode in order.
func (c *Client) GetEpisode(ctx context.Context, episodeID string) (domain.EpisodeMetadata, []domain.TurnRecord, error) {
	out, err := c.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: episodePK(episodeID)},
			"SK": &types.AttributeValueMemberS{Value: skMeta},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return domain.EpisodeMetadata{}, nil, fmt.Errorf("repository: GetEpisode get item: %w", err)
	}
	if out == nil || len(out.Item) == 0 {
		return domain.EpisodeMetadata{}, nil, ErrNotFound
	}
	meta, turnCount, err := itemToMeta(out.Item)
	if err != nil {
		return domain.EpisodeMetadata{}, nil, fmt.Errorf("repository: GetEpisode decode meta: %w", err)
	}

	turns := make([]domain.TurnRecord, 0, turnCount)
	var startKey map[string]types.AttributeValue
	for {
		page, err := c.api.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(c.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":     &types.AttributeValueMemberS{Value: episodePK(episodeID)},
				":prefix": &types.AttributeValueMemberS{Value: skPrefixTurn},
			},
			ScanIndexForward:  aws.Bool(true),
			ConsistentRead:    aws.Bool(true),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return domain.EpisodeMetadata{}, nil, fmt.Errorf("repository: GetEpisode query: %w", err)
		}
		for _, item := range page.Items {
			turn, err := itemToTurn(item)
			if err != nil {
				return domain.EpisodeMetadata{}, nil, fmt.Errorf("repository: GetEpisode unmarshal: %w", err)
			}
			turns = append(turns, turn)
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		startKey = page.LastEvaluatedKey
	}
	return meta, turns, nil
}

func (c *Client) turnItem(episodeID string, index int, turn domain.TurnRecord, ttl int64) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: episodePK(episodeID)},
		"SK":        &types.AttributeValueMemberS{Value: turnSK(index)},
		"episodeId": &types.AttributeValueMemberS{Value: episodeID},
		"speaker":   &types.AttributeValueMemberS{Value: turn.Speaker},
		"text":      &types.AttributeValueMemberS{Value: turn.Text},
		"createdAt": &types.AttributeValueMemberS{Value: turn.CreatedAt.UTC().Format(time.RFC3339Nano)},
		"tokens":    &types.AttributeValueMemberN{Value: strconv.Itoa(c.tokens.Count(turn.Text))},
	}
	if ttl > 0 {
		item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)}
	}
	return item
}

func metaItem(meta domain.EpisodeMetadata, turns int, ttl int64) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: episodePK(meta.EpisodeID)},
		"SK":        &types.AttributeValueMemberS{Value: skMeta},
		"episodeId": &types.AttributeValueMemberS{Value: meta.EpisodeID},
		"createdAt": &types.AttributeValueMemberS{Value: meta.CreatedAt.UTC().Format(time.RFC3339)},
		"turns":     &types.AttributeValueMemberN{Value: strconv.Itoa(turns)},
	}
	for _, kv := range meta.Fields() {
		item[kv[0]] = &types.AttributeValueMemberS{Value: kv[1]}
	}
	if ttl > 0 {
		item["ttl"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(ttl, 10)}
	}
	return item
}

func itemToMeta(item map[string]types.AttributeValue) (domain.EpisodeMetadata, int, error) {
	var meta domain.EpisodeMetadata
	strs := []struct {
		key string
		dst *string
	}{
		{"episodeId", &meta.EpisodeID},
		{"host", &meta.Host},
		{"guest", &meta.Guest},
		{"theme", &meta.Theme},
		{"tone", &meta.Tone},
		{"language", &meta.Language},
		{"duration", &meta.Duration},
		{"model", &meta.Model},
	}
	for _, s := range strs {
		v, err := strAttr(item, s.key)
		if err != nil {
			return domain.EpisodeMetadata{}, 0, err
		}
		*s.dst = v
	}
	created, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.EpisodeMetadata{}, 0, err
	}
	meta.CreatedAt = created
	turns, err := intAttr(item, "turns")
	if err != nil {
		return domain.EpisodeMetadata{}, 0, err
	}
	return meta, turns, nil
}

// itemToTurn converts a DynamoDB attribute map to a TurnRecord.
func itemToTurn(item map[string]types.AttributeValue) (domain.TurnRecord, error) {
	speaker, err := strAttr(item, "speaker")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	text, err := strAttr(item, "text")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	created, err := timeAttr(item, "createdAt")
	if err != nil {
		return domain.TurnRecord{}, err
	}
	return domain.TurnRecord{Speaker: speaker, Text: text, CreatedAt: created}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func timeAttr(item map[string]types.AttributeValue, key string) (time.Time, error) {
	s, err := strAttr(item, key)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return ts, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
