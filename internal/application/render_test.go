package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"hazard-vision/internal/domain/entity"
)

func TestRenderHTML_NoHazards(t *testing.T) {
	report := &entity.Report{Blocks: []entity.ReportBlock{{
		Kind:   entity.KindClassifier,
		Title:  entity.KindClassifier.BlockTitle(),
		Output: []entity.Prediction{{Label: "tabby <cat>", Score: 0.5}},
	}}}

	html := RenderHTML(report)
	require.Contains(t, html, "<p><strong>MobileNet Predictions:</strong></p>")
	require.Contains(t, html, "&#34;className&#34;: &#34;tabby &lt;cat&gt;&#34;")
	require.True(t, strings.HasSuffix(html, "<p>No dangerous items detected.</p>"))
	require.NotContains(t, html, "Warning")
}

func TestRenderHTML_HazardSection(t *testing.T) {
	report := &entity.Report{
		Hazards: []entity.HazardMatch{
			{Kind: entity.KindClassifier, Model: "MobileNet", Labels: []string{"chef knife"}},
			{Kind: entity.KindDetector, Model: "Coco-SSD", Labels: []string{"knife"}},
		},
		Alert: true,
	}

	html := RenderHTML(report)
	require.Equal(t, `<p class="warning">Warning: Dangerous items detected!</p>`+
		`<p><strong>MobileNet detected the following dangerous items:</strong></p><ul><li>chef knife</li></ul>`+
		`<p><strong>Coco-SSD detected the following dangerous items:</strong></p><ul><li>knife</li></ul>`, html)
}

func TestRenderText(t *testing.T) {
	report := &entity.Report{
		Blocks: []entity.ReportBlock{
			{Kind: entity.KindDetector, Title: "Coco-SSD Detections", Output: []entity.Detection{{Label: "knife", Score: 0.85}}},
			{Kind: entity.KindPoseEstimator, Title: "PoseNet Prediction", Output: &entity.Pose{Score: 0.4}},
		},
		Hazards: []entity.HazardMatch{{Kind: entity.KindDetector, Model: "Coco-SSD", Labels: []string{"knife"}}},
	}

	text := RenderText(report)
	require.Contains(t, text, "• knife — 0.85")
	require.Contains(t, text, "score 0.40, keypoints 0")
	require.True(t, strings.HasSuffix(text, "Coco-SSD detected the following dangerous items: knife"))
}
