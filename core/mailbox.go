package core

// mailbox is an unbounded FIFO queue of messages backed by a ring buffer.
type mailbox struct {
	buf  []Message
	head int
	size int
}

func newMailbox(capacity int) *mailbox {
	if capacity < 1 {
		capacity = 1
	}
	return &mailbox{buf: make([]Message, capacity)}
}

// push appends msg at the tail, growing the buffer when full.
func (m *mailbox) push(msg Message) {
	if m.size == len(m.buf) {
		m.grow()
	}
	m.buf[(m.head+m.size)%len(m.buf)] = msg
	m.size++
}

// pop removes and returns the message at the head.
func (m *mailbox) pop() (Message, bool) {
	if m.size == 0 {
		return Message{}, false
	}
	msg := m.buf[m.head]
	m.buf[m.head] = Message{}
	m.head = (m.head + 1) % len(m.buf)
	m.size--
	return msg, true
}

func (m *mailbox) len() int {
	return m.size
}

// clear drops every queued message.
func (m *mailbox) clear() {
	for i := 0; i < m.size; i++ {
		m.buf[(m.head+i)%len(m.buf)] = Message{}
	}
	m.head = 0
	m.size = 0
}

func (m *mailbox) grow() {
	buf := make([]Message, len(m.buf)*2)
	for i := 0; i < m.size; i++ {
		buf[i] = m.buf[(m.head+i)%len(m.buf)]
	}
	m.buf = buf
	m.head = 0
}
