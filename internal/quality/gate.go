package quality

import (
	"fmt"

	"github.com/orion-content/orion/internal/rulebook"
)

// Gate states.
const (
	StatePass    = "pass"
	StateReview  = "review"
	StateBlocked = "blocked"
)

// Gate actions.
const (
	ActionPublish           = "publish"
	ActionPublishWithReview = "publish_with_review_tag"
	ActionBlock             = "block"
)

// Decision is the publish-gate outcome for one assessed article.
type Decision struct {
	State     string   `json:"state"`
	Action    string   `json:"action"`
	Reason    string   `json:"reason"`
	Tags      []string `json:"tags,omitempty"`
	Score     int      `json:"score"`
	Threshold int      `json:"threshold"`
}

// Publishable reports whether the article may go out (possibly tagged).
func (d Decision) Publishable() bool {
	return d.Action != ActionBlock
}

// Decide applies the enforcement policy to a quality score. At or above the
// threshold the article passes clean. Below it, the policy either blocks
// outright or lets it through carrying the review tag.
func Decide(score int, enforcement rulebook.Enforcement) Decision {
	threshold := enforcement.DefaultMinQualityScore

	if score >= threshold {
		return Decision{
			State:     StatePass,
			Action:    ActionPublish,
			Reason:    fmt.Sprintf("quality score %d meets threshold %d", score, threshold),
			Score:     score,
			Threshold: threshold,
		}
	}

	if enforcement.BlockPublishIfBelow {
		return Decision{
			State:     StateBlocked,
			Action:    ActionBlock,
			Reason:    fmt.Sprintf("quality score %d below threshold %d", score, threshold),
			Tags:      []string{enforcement.TagIfBelow},
			Score:     score,
			Threshold: threshold,
		}
	}

	return Decision{
		State:     StateReview,
		Action:    ActionPublishWithReview,
		Reason:    fmt.Sprintf("quality score %d below threshold %d, publishing with review tag", score, threshold),
		Tags:      []string{enforcement.TagIfBelow},
		Score:     score,
		Threshold: threshold,
	}
}
