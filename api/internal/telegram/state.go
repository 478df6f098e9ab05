package telegram

func (r *Router) setModel(chatID int64, modelID string) { r.models.Store(chatID, modelID) }

func (r *Router) getModel(chatID int64) string {
	if v, ok := r.models.Load(chatID); ok {
		if s, _ := v.(string); s != "" {
			return s
		}
	}
	return ""
}

func (r *Router) clearModel(chatID int64) { r.models.Delete(chatID) }
