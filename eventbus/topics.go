package eventbus

var (
	TopicPostRevalidation = NewTopic("spacetraveling.post.revalidation")
)

var AllTopics = []Topic{
	TopicPostRevalidation,
}
