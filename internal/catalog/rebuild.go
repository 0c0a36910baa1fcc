package catalog

import (
	"context"

	"github.com/sirupsen/logrus"
)

// RebuildIndex loads every stored face into the embedding index. Called
// at startup and by the reindex command; the index holds no state the
// store cannot regenerate. Faces whose embedding no longer matches the
// configured dimension are skipped with a warning. The optional
// progress callback receives (done, total) after each face.
func (c *Catalog) RebuildIndex(ctx context.Context, progress func(done, total int)) (int, error) {
	faces, err := c.store.AllFaces(ctx)
	if err != nil {
		return 0, storeErr(err)
	}

	inserted := 0
	for i, face := range faces {
		if err := c.index.Insert(face.AccountID, face.ID, face.Embedding); err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"face_id": face.ID,
				"account": face.AccountID,
			}).Warn("skipping face during index rebuild")
		} else {
			inserted++
		}
		if progress != nil {
			progress(i+1, len(faces))
		}
		if err := ctx.Err(); err != nil {
			return inserted, wrapError(KindInternal, err, "index rebuild interrupted")
		}
	}

	c.log.WithFields(logrus.Fields{
		"faces":    len(faces),
		"inserted": inserted,
	}).Info("embedding index rebuilt")
	return inserted, nil
}
