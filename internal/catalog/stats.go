package catalog

import "context"

// Stats summarizes an account's catalog.
type Stats struct {
	Faces   int `json:"faces"`
	People  int `json:"people"`
	Indexed int `json:"indexed"`
}

func (c *Catalog) Stats(ctx context.Context, accountID string) (*Stats, error) {
	if accountID == "" {
		return nil, newError(KindInvalidInput, "account id is required")
	}
	faces, err := c.store.CountFaces(ctx, accountID)
	if err != nil {
		return nil, storeErr(err)
	}
	people, err := c.store.CountPersons(ctx, accountID)
	if err != nil {
		return nil, storeErr(err)
	}
	return &Stats{
		Faces:   faces,
		People:  people,
		Indexed: c.index.Count(accountID),
	}, nil
}
