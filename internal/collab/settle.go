package collab

import (
	"github.com/MarcoPoloResearchLab/uibuilder/backend/internal/canvas"
	"go.uber.org/zap"
)

type stepKind int

const (
	stepGrow stepKind = iota
	stepShrink
	stepReset
)

type settleStep struct {
	kind stepKind
	id   canvas.ComponentID
}

type settleQueue struct {
	steps []settleStep
}

func (q *settleQueue) push(step settleStep) {
	q.steps = append(q.steps, step)
}

func (q *settleQueue) pop() (settleStep, bool) {
	if len(q.steps) == 0 {
		return settleStep{}, false
	}
	step := q.steps[0]
	q.steps = q.steps[1:]
	return step, true
}

// settle drains the queue until no component needs resizing. Growth walks up the
// ancestor chain; shrinking walks down into grandchildren. Every resize becomes a
// follow-up mutation.
func (s *Session) settle(queue *settleQueue) []Mutation {
	var followUps []Mutation
	for steps := 0; ; steps++ {
		step, ok := queue.pop()
		if !ok {
			return followUps
		}
		if steps >= s.maxSettle {
			s.logger.Error("auto-resize did not settle",
				zap.Int("steps", steps),
				zap.Int("pending", len(queue.steps)+1))
			return followUps
		}
		switch step.kind {
		case stepGrow:
			resize, resized := s.ledger.GrowParent(s.doc, step.id)
			if !resized {
				continue
			}
			followUps = append(followUps, s.resizeMutation(resize))
			if parent, ok := s.doc.FindByID(step.id); ok && parent.ParentID != "" {
				queue.push(settleStep{kind: stepGrow, id: parent.ParentID})
			}
		case stepReset:
			resize, reset := s.ledger.ResetToOriginal(s.doc, step.id)
			if !reset {
				continue
			}
			followUps = append(followUps, s.resizeMutation(resize))
		case stepShrink:
			for _, resize := range s.ledger.ShrinkChildren(s.doc, step.id) {
				followUps = append(followUps, s.resizeMutation(resize))
				if child, ok := s.doc.FindByID(resize.ID); ok && len(child.Children) > 0 {
					queue.push(settleStep{kind: stepShrink, id: child.ID})
				}
			}
		}
	}
}

func (s *Session) resizeMutation(resize canvas.Resize) Mutation {
	pageID, _ := s.doc.PageOf(resize.ID)
	return ComponentPropertiesUpdated{
		PageID:      pageID,
		ComponentID: resize.ID,
		Patch:       canvas.SizePatch(resize),
	}
}
