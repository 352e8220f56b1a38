package sgml

import "github.com/mindtouch/sgml/internal/stack"

const stackGrowth = 10

// nodeStack is the reader's element stack: a high-water stack of
// reusable frames. Index 0 is the sentinel document frame.
type nodeStack struct {
	hw *stack.HighWater[node]
}

func newNodeStack() *nodeStack {
	s := &nodeStack{hw: stack.New[node](stackGrowth)}
	s.hw.Push(newNode).reset(DocumentNode, "", "")
	return s
}

// push resets a recycled frame for the new scope, inheriting the
// xml:space and xml:lang scopes of the frame beneath it.
func (s *nodeStack) push(typ NodeType, name, value string) *node {
	parent := s.hw.Peek()
	n := s.hw.Push(newNode)
	n.reset(typ, name, value)
	if parent != nil {
		n.space = parent.space
		n.lang = parent.lang
	}
	return n
}

// pushNode reinserts a frame that was detached by detachTop (the auto-close
// pending element).
func (s *nodeStack) pushNode(n *node) {
	s.hw.PushItem(n)
}

func (s *nodeStack) pop() *node {
	return s.hw.Pop()
}

// detachTop removes and returns the top frame without leaving it in
// the arena; used to carry the pending element across an auto-close.
func (s *nodeStack) detachTop() *node {
	return s.hw.DetachTop()
}

// swapTop exchanges the two topmost frames (wrapper injection).
func (s *nodeStack) swapTop() {
	n := s.hw.Len()
	s.hw.Swap(n-1, n-2)
}

func (s *nodeStack) top() *node {
	return s.hw.Peek()
}

func (s *nodeStack) get(i int) *node {
	return s.hw.Get(i)
}

// depth is the live frame count, sentinel included.
func (s *nodeStack) depth() int {
	return s.hw.Len()
}
