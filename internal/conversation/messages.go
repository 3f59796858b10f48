package conversation

import "github.com/beadhub/standupbot/internal/tasks"

const (
	greetingText     = "_Lets begin!_ :punch:\n"
	confusedText     = "I don't understand what you mean :confused:"
	newListText      = "New task list is now: "
	publishingPrefix = "Publishing to "
	previewPrefix    = "_Preview of what will be published to #"

	usageText = "_You can tell me what to mark as `done`, `wip` or `cancelled` by saying `done 1,3,6` for example. " +
		"To delete a task use `delete` and to mark it back as todo use `todo`. To simply show the list type `show`. " +
		"To start a new task simply enter a dash and the task. e.g. `- new task for today`_"
	rememberText = "_Standupbot remembers your `todo` and `wip` tasks from yesterday, and will automatically remove " +
		"your done and cancelled tasks after you publish them. No more remembering and repeating yourself! :sweat_smile:_"
)

func publishHintText(channel string) string {
	return "_The task list below will be automagically updated. When done enter `publish` to send it to #" + channel + "_"
}

// ackText is posted before the list is re-rendered after a mark command.
func ackText(status tasks.Status) string {
	switch status {
	case tasks.StatusDone:
		return "Great job getting those done! :clap:\n"
	case tasks.StatusWIP:
		return "Its okay we'll get those tomorrow! :punch:\n"
	case tasks.StatusCancelled:
		return "They weren't worth it anyways.. \n"
	case tasks.StatusDeleted:
		return "Deleted \n"
	default:
		return "Back to Todo\n"
	}
}
