package pipeline

import "context"

// FinishReply exposes the reply post-processing step to tests.
func (p *Pipeline) FinishReply(ctx context.Context, authorID, reply string) string {
	return p.finishReply(ctx, authorID, reply)
}
