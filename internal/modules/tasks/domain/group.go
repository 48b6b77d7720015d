package domain

// UnassignedID keys the section holding tasks without assignees.
const UnassignedID = "UNASSIGNED"

type StatusGroup struct {
	Status string
	Tasks  []Task
}

type Section struct {
	AssigneeID   string
	AssigneeName string
	Groups       []StatusGroup
}

func (s Section) TaskCount() int {
	n := 0
	for _, group := range s.Groups {
		n += len(group.Tasks)
	}
	return n
}

func (s Section) IsUnassigned() bool {
	return s.AssigneeID == UnassignedID
}

// GroupTasksByAssignee partitions tasks into one section per assignee in
// first-appearance order. Task order within a section follows the input.
func GroupTasksByAssignee(tasks []Task, users []User) []Section {
	names := make(map[string]string, len(users))
	for _, user := range users {
		names[user.ID] = user.Name
	}

	var sections []*Section
	index := map[string]*Section{}
	var unassigned *Section

	for _, task := range tasks {
		if len(task.AssigneeIDs) == 0 {
			if unassigned == nil {
				unassigned = &Section{AssigneeID: UnassignedID, AssigneeName: "未割り当て"}
			}
			addToGroup(unassigned, task)
			continue
		}
		seen := map[string]bool{}
		for _, assignee := range task.AssigneeIDs {
			if assignee == "" || seen[assignee] {
				continue
			}
			seen[assignee] = true
			section, ok := index[assignee]
			if !ok {
				name := names[assignee]
				if name == "" {
					name = assignee
				}
				section = &Section{AssigneeID: assignee, AssigneeName: name}
				index[assignee] = section
				sections = append(sections, section)
			}
			addToGroup(section, task)
		}
	}

	out := make([]Section, 0, len(sections)+1)
	for _, section := range sections {
		out = append(out, *section)
	}
	if unassigned != nil {
		out = append(out, *unassigned)
	}
	return out
}

func addToGroup(section *Section, task Task) {
	key := StatusKey(task)
	for i := range section.Groups {
		if section.Groups[i].Status == key {
			section.Groups[i].Tasks = append(section.Groups[i].Tasks, task)
			return
		}
	}
	section.Groups = append(section.Groups, StatusGroup{Status: key, Tasks: []Task{task}})
}

// StatusKey is the progress status when present, otherwise the flow status.
func StatusKey(task Task) string {
	if task.ProgressStatus != "" {
		return task.ProgressStatus
	}
	return string(task.FlowStatus)
}

// ArrangeForViewer puts the viewer's section first and UNASSIGNED last,
// leaving the rest in their existing order.
func ArrangeForViewer(sections []Section, viewerID string) []Section {
	out := make([]Section, 0, len(sections))
	var rest []Section
	var unassigned []Section
	for _, section := range sections {
		switch {
		case section.IsUnassigned():
			unassigned = append(unassigned, section)
		case viewerID != "" && section.AssigneeID == viewerID:
			out = append(out, section)
		default:
			rest = append(rest, section)
		}
	}
	out = append(out, rest...)
	return append(out, unassigned...)
}
