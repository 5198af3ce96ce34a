package dialog

import (
	"fmt"
	"sync"
)

// DialogManager хранит активные диалоги, индексированные по DialogKey.
//
// Потокобезопасен: используется как из обработчиков транспортного/
// транзакционного слоя, так и из прикладного кода через Stack.
type DialogManager struct {
	mu      sync.RWMutex
	dialogs map[DialogKey]*Dialog
}

// NewDialogManager создает пустой менеджер диалогов
func NewDialogManager() *DialogManager {
	return &DialogManager{
		dialogs: make(map[DialogKey]*Dialog),
	}
}

// Add регистрирует новый диалог. Возвращает ошибку, если диалог с таким
// ключом уже существует.
func (dm *DialogManager) Add(dialog *Dialog) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	key := dialog.Key()
	if _, exists := dm.dialogs[key]; exists {
		return fmt.Errorf("dialog with key %s already exists", key)
	}

	dm.dialogs[key] = dialog
	return nil
}

// Get возвращает диалог по ключу
func (dm *DialogManager) Get(key DialogKey) (*Dialog, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	dialog, ok := dm.dialogs[key]
	return dialog, ok
}

// Remove удаляет диалог из менеджера
func (dm *DialogManager) Remove(key DialogKey) {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	delete(dm.dialogs, key)
}

// UpdateKey перемещает диалог со старого ключа на новый.
//
// Используется когда UAC узнает remote tag из первого ответа на INVITE:
// диалог был сохранен с пустым RemoteTag и должен быть переиндексирован.
func (dm *DialogManager) UpdateKey(oldKey, newKey DialogKey) error {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dialog, ok := dm.dialogs[oldKey]
	if !ok {
		return fmt.Errorf("dialog with key %s not found", oldKey)
	}

	if _, exists := dm.dialogs[newKey]; exists && newKey != oldKey {
		return fmt.Errorf("dialog with key %s already exists", newKey)
	}

	delete(dm.dialogs, oldKey)
	dm.dialogs[newKey] = dialog
	return nil
}

// GetAll возвращает снимок всех активных диалогов
func (dm *DialogManager) GetAll() []*Dialog {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	result := make([]*Dialog, 0, len(dm.dialogs))
	for _, d := range dm.dialogs {
		result = append(result, d)
	}
	return result
}

// Clear удаляет все диалоги
func (dm *DialogManager) Clear() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.dialogs = make(map[DialogKey]*Dialog)
}
