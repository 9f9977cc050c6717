package cli

import "offline-quiz-service/internal/domain"

// sampleQuestions is the built-in bank used when no postgres source is configured.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{ID: "tech-1", Category: "technology", Text: "Which language is used natively for Android development?", OptionA: "Swift", OptionB: "Kotlin", OptionC: "Ruby", OptionD: "PHP", CorrectAnswer: "B", Difficulty: "easy"},
		{ID: "tech-2", Category: "technology", Text: "What does the acronym API stand for?", OptionA: "Application Programming Interface", OptionB: "Advanced Program Integration", OptionC: "Automated Process Input", OptionD: "Applied Protocol Index", CorrectAnswer: "A", Difficulty: "easy"},
		{ID: "tech-3", Category: "technology", Text: "Which data structure follows the FIFO principle?", OptionA: "Stack", OptionB: "Tree", OptionC: "Queue", OptionD: "Graph", CorrectAnswer: "C", Difficulty: "medium"},
		{ID: "tech-4", Category: "technology", Text: "What is the time complexity of binary search?", OptionA: "O(n)", OptionB: "O(n log n)", OptionC: "O(1)", OptionD: "O(log n)", CorrectAnswer: "D", Difficulty: "medium"},
		{ID: "tech-5", Category: "technology", Text: "How many bits are in one byte?", OptionA: "4", OptionB: "8", OptionC: "16", OptionD: "32", CorrectAnswer: "B", Difficulty: "easy"},
		{ID: "sci-1", Category: "science", Text: "What is the chemical symbol for gold?", OptionA: "Au", OptionB: "Ag", OptionC: "Gd", OptionD: "Go", CorrectAnswer: "A", Difficulty: "easy"},
		{ID: "sci-2", Category: "science", Text: "Which planet is known as the red planet?", OptionA: "Venus", OptionB: "Jupiter", OptionC: "Mars", OptionD: "Mercury", CorrectAnswer: "C", Difficulty: "easy"},
		{ID: "sci-3", Category: "science", Text: "What gas do plants absorb from the atmosphere?", OptionA: "Oxygen", OptionB: "Nitrogen", OptionC: "Helium", OptionD: "Carbon dioxide", CorrectAnswer: "D", Difficulty: "easy"},
		{ID: "geo-1", Category: "geography", Text: "What is the capital of Australia?", OptionA: "Sydney", OptionB: "Canberra", OptionC: "Melbourne", OptionD: "Perth", CorrectAnswer: "B", Difficulty: "medium"},
		{ID: "geo-2", Category: "geography", Text: "Which is the longest river in South America?", OptionA: "Amazon", OptionB: "Parana", OptionC: "Orinoco", OptionD: "Sao Francisco", CorrectAnswer: "A", Difficulty: "medium"},
	}
}
