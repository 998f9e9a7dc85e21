package embedding

import "context"

// EmbedAllowingFailures embeds texts, tolerating per-text failures. The result
// is aligned with texts; failed slots are nil and counted. It first attempts
// one batch call; if that fails recoverably it falls back to per-text calls so
// one bad chunk cannot sink the unit. An unrecoverable provider error aborts
// immediately; retrying against a dead or misconfigured endpoint helps nobody.
func EmbedAllowingFailures(ctx context.Context, e Embedder, texts []string) ([][]float32, int, error) {
	if len(texts) == 0 {
		return nil, 0, nil
	}
	vecs, err := e.EmbedBatch(ctx, texts)
	if err == nil && len(vecs) == len(texts) {
		return vecs, 0, nil
	}
	if IsUnrecoverable(err) {
		return nil, len(texts), err
	}

	vecs = make([][]float32, len(texts))
	failed := 0
	for i, text := range texts {
		v, embErr := e.Embed(ctx, text)
		if embErr != nil {
			if IsUnrecoverable(embErr) {
				return nil, len(texts), embErr
			}
			failed++
			continue
		}
		vecs[i] = v
	}
	return vecs, failed, nil
}
