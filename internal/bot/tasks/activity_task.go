package tasks

import (
	"context"
	"fmt"

	"github.com/edgard/groupmate/internal/dice"
	"github.com/edgard/groupmate/internal/transport"
)

// Activities is the presence rotation pool.
var Activities = []transport.Activity{
	{Kind: transport.ActivityPlaying, Name: "思考人生"},
	{Kind: transport.ActivityListening, Name: "群友讨论"},
	{Kind: transport.ActivityWatching, Name: "有趣的对话"},
	{Kind: transport.ActivityPlaying, Name: "学习新知识"},
	{Kind: transport.ActivityCompeting, Name: "智力竞赛"},
}

func newActivityRotationTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "activity_rotation")

	return func(ctx context.Context) error {
		a := dice.Pick(deps.Dice, Activities)
		if err := deps.Conn.SetActivity(ctx, a); err != nil {
			return fmt.Errorf("set activity: %w", err)
		}
		log.InfoContext(ctx, "Changed activity", "activity", a.Name)
		return nil
	}
}
