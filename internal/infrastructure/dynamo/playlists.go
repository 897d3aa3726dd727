package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sports-playlist/internal/domain"
)

// PlaylistRepo stores playlist entries keyed by (user_id, match_id).
type PlaylistRepo struct {
	client    API
	tableName string
}

func NewPlaylistRepo(client API, tableName string) *PlaylistRepo {
	return &PlaylistRepo{client: client, tableName: tableName}
}

// Put adds an entry. Returns ErrConflict when the user already holds the match.
func (r *PlaylistRepo) Put(ctx context.Context, e *domain.PlaylistEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal playlist entry: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(match_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("match already in playlist: %w", domain.ErrConflict)
	}
	if err != nil {
		return storeErr("put playlist entry", err)
	}
	return nil
}

func (r *PlaylistRepo) Get(ctx context.Context, userID, matchID string) (*domain.PlaylistEntry, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       compositeKey(attrUserID, userID, attrMatchID, matchID),
	})
	if err != nil {
		return nil, storeErr("get playlist entry", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("playlist entry not found: %w", domain.ErrNotFound)
	}
	var e domain.PlaylistEntry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ListByUser returns every entry in the user's playlist.
func (r *PlaylistRepo) ListByUser(ctx context.Context, userID string) ([]domain.PlaylistEntry, error) {
	return r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("user_id = :u"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":u": &types.AttributeValueMemberS{Value: userID},
		},
	})
}

// Delete removes one entry. Returns ErrNotFound when the entry does not exist.
func (r *PlaylistRepo) Delete(ctx context.Context, userID, matchID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 compositeKey(attrUserID, userID, attrMatchID, matchID),
		ConditionExpression: aws.String("attribute_exists(match_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("match not in playlist: %w", domain.ErrNotFound)
	}
	if err != nil {
		return storeErr("delete playlist entry", err)
	}
	return nil
}

// DeleteByMatch removes the match from every playlist that holds it and returns
// how many entries were removed.
func (r *PlaylistRepo) DeleteByMatch(ctx context.Context, matchID string) (int, error) {
	entries, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexMatchID),
		KeyConditionExpression: aws.String("match_id = :m"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":m": &types.AttributeValueMemberS{Value: matchID},
		},
	})
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       compositeKey(attrUserID, e.UserID, attrMatchID, e.MatchID),
		})
		if err != nil {
			return i, storeErr("delete playlist entry", err)
		}
	}
	return len(entries), nil
}

func (r *PlaylistRepo) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.PlaylistEntry, error) {
	var entries []domain.PlaylistEntry
	p := dynamodb.NewQueryPaginator(r.client, input)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("query playlist", err)
		}
		var page []domain.PlaylistEntry
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		entries = append(entries, page...)
	}
	return entries, nil
}
