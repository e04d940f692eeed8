package enums

import "fmt"

type QuestStatus string

const (
	QuestStatusDraft    QuestStatus = "draft"
	QuestStatusActive   QuestStatus = "active"
	QuestStatusArchived QuestStatus = "archived"
)

func ParseQuestStatus(value string) (QuestStatus, error) {
	status := QuestStatus(value)
	switch status {
	case QuestStatusDraft, QuestStatusActive, QuestStatusArchived:
		return status, nil
	}
	return "", fmt.Errorf("unknown quest status %q", value)
}
