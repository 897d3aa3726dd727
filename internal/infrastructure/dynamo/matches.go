package dynamo

import (
	"context"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sports-playlist/internal/domain"
)

const (
	// maxTransactItems is the DynamoDB limit on actions per TransactWriteItems call.
	maxTransactItems = 100
	// maxBatchGetKeys is the DynamoDB limit on keys per BatchGetItem call.
	maxBatchGetKeys = 100
)

// MatchRepo provides typed DynamoDB operations for the matches table.
type MatchRepo struct {
	client    API
	tableName string
}

func NewMatchRepo(client API, tableName string) *MatchRepo {
	return &MatchRepo{client: client, tableName: tableName}
}

func (r *MatchRepo) Put(ctx context.Context, m *domain.Match) error {
	item, err := attributevalue.MarshalMap(m)
	if err != nil {
		return fmt.Errorf("marshal match: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return storeErr("put match", err)
	}
	return nil
}

// Update writes the mutable fields of an existing match. Returns ErrNotFound
// when the id is unknown.
func (r *MatchRepo) Update(ctx context.Context, m *domain.Match) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"title":       m.Title,
		"competition": m.Competition,
		"date":        m.Date,
		attrStatus:    string(m.Status),
		"stream_url":  m.StreamURL,
	})
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey(attrMatchID, m.MatchID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(match_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("match not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return storeErr("update match", err)
	}
	return nil
}

func (r *MatchRepo) Get(ctx context.Context, matchID string) (*domain.Match, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrMatchID, matchID),
	})
	if err != nil {
		return nil, storeErr("get match", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("match not found: %w", domain.ErrNotFound)
	}
	var m domain.Match
	if err := attributevalue.UnmarshalMap(out.Item, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMany loads the given matches with BatchGetItem. Ids that no longer exist
// are skipped; the result order is not guaranteed.
func (r *MatchRepo) GetMany(ctx context.Context, matchIDs []string) ([]domain.Match, error) {
	var matches []domain.Match
	for start := 0; start < len(matchIDs); start += maxBatchGetKeys {
		end := min(start+maxBatchGetKeys, len(matchIDs))
		keys := make([]map[string]types.AttributeValue, 0, end-start)
		for _, id := range matchIDs[start:end] {
			keys = append(keys, strKey(attrMatchID, id))
		}
		request := map[string]types.KeysAndAttributes{r.tableName: {Keys: keys}}
		for len(request) > 0 {
			out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
			if err != nil {
				return nil, storeErr("batch get matches", err)
			}
			var page []domain.Match
			if err := attributevalue.UnmarshalListOfMaps(out.Responses[r.tableName], &page); err != nil {
				return nil, err
			}
			matches = append(matches, page...)
			request = out.UnprocessedKeys
		}
	}
	return matches, nil
}

// Scan returns every match, following LastEvaluatedKey across pages.
func (r *MatchRepo) Scan(ctx context.Context) ([]domain.Match, error) {
	var matches []domain.Match
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("scan matches", err)
		}
		var page []domain.Match
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		matches = append(matches, page...)
	}
	return matches, nil
}

// ListByStatus queries the status-index GSI.
func (r *MatchRepo) ListByStatus(ctx context.Context, status domain.MatchStatus) ([]domain.Match, error) {
	var matches []domain.Match
	p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(indexStatus),
		KeyConditionExpression: aws.String("#s = :s"),
		ExpressionAttributeNames: map[string]string{
			"#s": attrStatus,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":s": &types.AttributeValueMemberS{Value: string(status)},
		},
	})
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, storeErr("query matches by status", err)
		}
		var page []domain.Match
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, err
		}
		matches = append(matches, page...)
	}
	return matches, nil
}

// HardDelete permanently removes a match. Returns ErrNotFound when the id is unknown.
func (r *MatchRepo) HardDelete(ctx context.Context, matchID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey(attrMatchID, matchID),
		ConditionExpression: aws.String("attribute_exists(match_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("match not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return storeErr("delete match", err)
	}
	return nil
}

// Begin opens a unit of work over the matches table. Status changes staged with
// Update are written only by CommitBatch; Close discards whatever was not committed.
func (r *MatchRepo) Begin(_ context.Context) (*MatchSession, error) {
	return &MatchSession{repo: r, staged: make(map[string]domain.MatchStatus)}, nil
}

// MatchSession stages status changes for one reconciliation pass.
type MatchSession struct {
	repo   *MatchRepo
	order  []string
	staged map[string]domain.MatchStatus
	closed bool
}

func (s *MatchSession) ListAll(ctx context.Context) ([]domain.Match, error) {
	if s.closed {
		return nil, fmt.Errorf("session closed: %w", domain.ErrStore)
	}
	return s.repo.Scan(ctx)
}

// Update stages the match's current status. Only the status attribute is written
// on commit so concurrent edits to other fields are not overwritten.
func (s *MatchSession) Update(m *domain.Match) error {
	if s.closed {
		return fmt.Errorf("session closed: %w", domain.ErrStore)
	}
	if _, ok := s.staged[m.MatchID]; !ok {
		s.order = append(s.order, m.MatchID)
	}
	s.staged[m.MatchID] = m.Status
	return nil
}

// CommitBatch writes all staged changes in TransactWriteItems calls of at most
// maxTransactItems actions. Each call is atomic; a failed call leaves its chunk
// and every later chunk unwritten. When earlier chunks were already written the
// error is a *domain.PartialCommitError naming them.
func (s *MatchSession) CommitBatch(ctx context.Context) error {
	if s.closed {
		return fmt.Errorf("session closed: %w", domain.ErrStore)
	}
	for start := 0; start < len(s.order); start += maxTransactItems {
		end := min(start+maxTransactItems, len(s.order))
		items := make([]types.TransactWriteItem, 0, end-start)
		for _, id := range s.order[start:end] {
			items = append(items, types.TransactWriteItem{
				Update: &types.Update{
					TableName:           aws.String(s.repo.tableName),
					Key:                 strKey(attrMatchID, id),
					UpdateExpression:    aws.String("SET #s = :s"),
					ConditionExpression: aws.String("attribute_exists(match_id)"),
					ExpressionAttributeNames: map[string]string{
						"#s": attrStatus,
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":s": &types.AttributeValueMemberS{Value: string(s.staged[id])},
					},
				},
			})
		}
		if _, err := s.repo.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
			TransactItems: items,
		}); err != nil {
			err = storeErr("transact match statuses", err)
			if start == 0 {
				return err
			}
			return &domain.PartialCommitError{Committed: slices.Clone(s.order[:start]), Err: err}
		}
	}
	s.order = nil
	s.staged = make(map[string]domain.MatchStatus)
	return nil
}

// Close releases the session and drops anything left uncommitted.
func (s *MatchSession) Close() error {
	s.closed = true
	s.order = nil
	s.staged = nil
	return nil
}
