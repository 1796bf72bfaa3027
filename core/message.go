package core

// Content is the body of a Message. It is either Text or Payload.
type Content interface {
	isContent()
}

// Text is string message content.
type Text string

func (Text) isContent() {}

// Payload carries caller-defined data. The runtime never inspects Value;
// ownership moves from the sender to the receiving behavior.
type Payload struct {
	Value any
}

func (Payload) isContent() {}

// Header describes a Message.
type Header struct {
	// Type is the discriminator interpreted by behaviors
	Type string

	// From is the sender, stamped by System.Tell
	From ActorRef
}

// Message is the immutable envelope passed between actors.
type Message struct {
	Header  Header
	Content Content
}

// NewMessage creates a message with the given type tag and content.
// The sender is filled in when the message is sent.
func NewMessage(msgType string, content Content) Message {
	return Message{
		Header:  Header{Type: msgType},
		Content: content,
	}
}

// NewTextMessage creates a message carrying a string.
func NewTextMessage(msgType, text string) Message {
	return NewMessage(msgType, Text(text))
}

// NewPayloadMessage creates a message carrying caller-defined data.
func NewPayloadMessage(msgType string, value any) Message {
	return NewMessage(msgType, Payload{Value: value})
}

// Type returns the message type tag.
func (m Message) Type() string {
	return m.Header.Type
}

// From returns the sender of the message.
func (m Message) From() ActorRef {
	return m.Header.From
}

// Text returns the string content and whether the content is Text.
func (m Message) Text() (string, bool) {
	t, ok := m.Content.(Text)
	return string(t), ok
}

// withSender returns a copy of m stamped with the sender.
func (m Message) withSender(from ActorRef) Message {
	m.Header.From = from
	return m
}

// PayloadOf extracts a typed payload value from msg.
// It reports false if the content is not a Payload holding a T.
func PayloadOf[T any](msg Message) (T, bool) {
	var zero T
	p, ok := msg.Content.(Payload)
	if !ok {
		return zero, false
	}
	v, ok := p.Value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
